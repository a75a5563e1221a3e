package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
)

// ── 测试辅助 ──

func setupTestScheduleService() (ScheduleService, *mockRepos) {
	repo, mocks := newMockRepository()
	seedScheduleEntities(mocks)
	notifier := NewRepoNotifier(repo)
	svc := NewScheduleService(repo, notifier, nil, NewFixedClock(date(2024, 10, 1)), zap.NewNop())
	return svc, mocks
}

func seedScheduleEntities(mocks *mockRepos) {
	mocks.semester.semesters["sem-001"] = &model.Semester{
		SemesterID: "sem-001",
		Year:       2024,
		Type:       model.SemesterTypeFirst,
		StartDate:  date(2024, 8, 1),
		EndDate:    date(2024, 12, 15),
		IsActive:   true,
		Status:     model.SemesterStatusCurrent,
	}
	mocks.subject.subjects["sub-001"] = &model.Subject{SubjectID: "sub-001", Code: "MATH101", Name: "College Algebra"}
	mocks.section.sections["sec-001"] = &model.Section{SectionID: "sec-001", Name: "BSIT-1A", Capacity: 40}
	mocks.room.rooms["room-101"] = &model.Room{RoomID: "room-101", RoomNumber: "101", Capacity: 45}
	mocks.room.rooms["room-102"] = &model.Room{RoomID: "room-102", RoomNumber: "102", Capacity: 30}
	mocks.instructor.instructors["ins-001"] = &model.Instructor{InstructorID: "ins-001", FirstName: "Juan", LastName: "Dela Cruz"}
}

func validCreateRequest() *dto.CreateScheduleRequest {
	return &dto.CreateScheduleRequest{
		SubjectID: "sub-001",
		SectionID: "sec-001",
		RoomID:    "room-101",
		DayOfWeek: "monday",
		StartTime: "09:00",
		EndTime:   "10:00",
	}
}

// ── Create 测试 ──

func TestScheduleService_Create_Success(t *testing.T) {
	svc, _ := setupTestScheduleService()

	result, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.Status != model.ScheduleStatusActive {
		t.Errorf("期望 Status=active，实际: %s", result.Status)
	}
	if result.SemesterID != "sem-001" {
		t.Errorf("缺省学期应解析为当前激活学期，实际: %s", result.SemesterID)
	}
	if result.MaxStudents != 40 {
		t.Errorf("期望默认容量 40，实际: %d", result.MaxStudents)
	}
}

func TestScheduleService_Create_ConflictBlocks(t *testing.T) {
	svc, mocks := setupTestScheduleService()

	if _, err := svc.Create(context.Background(), validCreateRequest(), "admin-001"); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}

	// 同教室同星期、时段部分重叠
	req := validCreateRequest()
	req.StartTime = "09:30"
	req.EndTime = "10:30"
	_, err := svc.Create(context.Background(), req, "admin-001")
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("期望 ErrScheduleConflict，实际: %v", err)
	}

	// 阻断的同时投递高优通知
	if len(mocks.notification.notifications) != 1 {
		t.Fatalf("期望 1 条通知，实际: %d", len(mocks.notification.notifications))
	}
	n := mocks.notification.notifications[0]
	if n.Priority != model.NotificationPriorityHigh {
		t.Errorf("期望高优通知，实际: %s", n.Priority)
	}
	if n.Type != NotifyTypeScheduleConflict {
		t.Errorf("期望通知类型 schedule_conflict，实际: %s", n.Type)
	}
}

func TestScheduleService_Create_RoomNotFound(t *testing.T) {
	svc, _ := setupTestScheduleService()

	req := validCreateRequest()
	req.RoomID = "room-999"
	_, err := svc.Create(context.Background(), req, "admin-001")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际: %v", err)
	}
}

func TestScheduleService_Create_NoActiveSemester(t *testing.T) {
	svc, mocks := setupTestScheduleService()
	mocks.semester.semesters["sem-001"].IsActive = false

	_, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if !errors.Is(err, ErrNoActiveSemester) {
		t.Errorf("期望 ErrNoActiveSemester，实际: %v", err)
	}
}

func TestScheduleService_Create_LockerBusy(t *testing.T) {
	repo, mocks := newMockRepository()
	seedScheduleEntities(mocks)
	locker := &stubLocker{busy: true}
	svc := NewScheduleService(repo, nil, locker, NewFixedClock(date(2024, 10, 1)), zap.NewNop())

	_, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if !errors.Is(err, ErrSlotBusy) {
		t.Errorf("期望 ErrSlotBusy，实际: %v", err)
	}
}

type stubLocker struct {
	busy bool
}

func (l *stubLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(), bool, error) {
	if l.busy {
		return nil, false, nil
	}
	return func() {}, true, nil
}

// ── Update 测试 ──

func TestScheduleService_Update_ConflictAdvisoryOnly(t *testing.T) {
	svc, mocks := setupTestScheduleService()

	first, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	second := validCreateRequest()
	second.StartTime = "11:00"
	second.EndTime = "12:00"
	created, err := svc.Create(context.Background(), second, "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	// 把第二条改到与第一条重叠：编辑冲突仅提示，保存照常进行
	newStart, newEnd := "09:30", "10:30"
	updated, report, err := svc.Update(context.Background(), created.ID,
		&dto.UpdateScheduleRequest{StartTime: &newStart, EndTime: &newEnd}, "admin-001")
	if err != nil {
		t.Fatalf("Update 不应因冲突失败: %v", err)
	}
	if updated.StartTime != "09:30" {
		t.Errorf("期望保存生效，实际 StartTime: %s", updated.StartTime)
	}
	if !report.HasConflict {
		t.Fatal("期望冲突报告 HasConflict=true")
	}
	if report.Reason != ConflictReasonRoom {
		t.Errorf("期望 Reason=room，实际: %s", report.Reason)
	}
	if len(report.Collisions) != 1 || report.Collisions[0].ID != first.ID {
		t.Errorf("期望碰撞 %s，实际: %+v", first.ID, report.Collisions)
	}

	// 提示冲突时仍投递高优通知
	found := false
	for _, n := range mocks.notification.notifications {
		if n.Type == NotifyTypeScheduleConflict {
			found = true
		}
	}
	if !found {
		t.Error("期望投递冲突通知")
	}
}

func TestScheduleService_Update_ArchivedRejected(t *testing.T) {
	svc, _ := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), created.ID, "admin-001"); err != nil {
		t.Fatalf("归档应成功: %v", err)
	}

	maxStudents := 50
	_, _, err = svc.Update(context.Background(), created.ID,
		&dto.UpdateScheduleRequest{MaxStudents: &maxStudents}, "admin-001")
	if !errors.Is(err, ErrScheduleArchived) {
		t.Errorf("期望 ErrScheduleArchived，实际: %v", err)
	}
}

// ── Transition 测试 ──

func TestScheduleService_Transition_Valid(t *testing.T) {
	svc, mocks := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	result, err := svc.Transition(context.Background(), created.ID,
		&dto.TransitionScheduleRequest{Status: model.ScheduleStatusPostponed, Reason: "教室维修"}, "admin-001")
	if err != nil {
		t.Fatalf("Transition 应成功: %v", err)
	}
	if result.Status != model.ScheduleStatusPostponed {
		t.Errorf("期望 Status=postponed，实际: %s", result.Status)
	}

	// 延期投递普通优先级通知
	n := mocks.notification.notifications[len(mocks.notification.notifications)-1]
	if n.Type != NotifyTypeSchedulePostponed || n.Priority != model.NotificationPriorityNormal {
		t.Errorf("期望普通延期通知，实际: type=%s priority=%s", n.Type, n.Priority)
	}

	// postponed → active 允许
	result, err = svc.Transition(context.Background(), created.ID,
		&dto.TransitionScheduleRequest{Status: model.ScheduleStatusActive}, "admin-001")
	if err != nil {
		t.Fatalf("复课流转应成功: %v", err)
	}
	if result.Status != model.ScheduleStatusActive {
		t.Errorf("期望 Status=active，实际: %s", result.Status)
	}
}

func TestScheduleService_Transition_CompletedTerminal(t *testing.T) {
	svc, _ := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if _, err := svc.Transition(context.Background(), created.ID,
		&dto.TransitionScheduleRequest{Status: model.ScheduleStatusCompleted}, "admin-001"); err != nil {
		t.Fatalf("完结流转应成功: %v", err)
	}

	_, err = svc.Transition(context.Background(), created.ID,
		&dto.TransitionScheduleRequest{Status: model.ScheduleStatusActive}, "admin-001")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed 应为终态，实际: %v", err)
	}
}

func TestScheduleService_Transition_CancelledReactivate(t *testing.T) {
	svc, _ := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if _, err := svc.Transition(context.Background(), created.ID,
		&dto.TransitionScheduleRequest{Status: model.ScheduleStatusCancelled}, "admin-001"); err != nil {
		t.Fatalf("取消流转应成功: %v", err)
	}

	// cancelled → active 仅限显式流转
	result, err := svc.Transition(context.Background(), created.ID,
		&dto.TransitionScheduleRequest{Status: model.ScheduleStatusActive}, "admin-001")
	if err != nil {
		t.Fatalf("显式复课应成功: %v", err)
	}
	if result.Status != model.ScheduleStatusActive {
		t.Errorf("期望 Status=active，实际: %s", result.Status)
	}
}

// ── SoftDelete / Restore 测试 ──

func TestScheduleService_SoftDelete_ForcesCancelled(t *testing.T) {
	svc, mocks := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), created.ID, "admin-001"); err != nil {
		t.Fatalf("SoftDelete 应成功: %v", err)
	}

	stored := mocks.schedule.schedules[created.ID]
	if stored.Status != model.ScheduleStatusCancelled {
		t.Errorf("归档应强制 Status=cancelled，实际: %s", stored.Status)
	}
	if !stored.DeletedAt.Valid {
		t.Error("归档应置位 deleted_at")
	}

	// 已归档记录仍可按 ID 查询
	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("归档记录应可查询: %v", err)
	}
	if got.DeletedAt == nil {
		t.Error("响应应回显 deleted_at")
	}

	// 重复归档拒绝
	if err := svc.SoftDelete(context.Background(), created.ID, "admin-001"); !errors.Is(err, ErrScheduleArchived) {
		t.Errorf("期望 ErrScheduleArchived，实际: %v", err)
	}
}

func TestScheduleService_Restore_StaysCancelled(t *testing.T) {
	svc, _ := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), created.ID, "admin-001"); err != nil {
		t.Fatalf("归档应成功: %v", err)
	}

	restored, err := svc.Restore(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Restore 应成功: %v", err)
	}
	if restored.DeletedAt != nil {
		t.Error("还原后 deleted_at 应清空")
	}
	// 还原不自动复课：需显式流转回 active
	if restored.Status != model.ScheduleStatusCancelled {
		t.Errorf("还原后状态应保持 cancelled，实际: %s", restored.Status)
	}
}

func TestScheduleService_Restore_NotArchived(t *testing.T) {
	svc, _ := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	_, err = svc.Restore(context.Background(), created.ID)
	if !errors.Is(err, ErrScheduleNotArchived) {
		t.Errorf("期望 ErrScheduleNotArchived，实际: %v", err)
	}
}

// ── 归档记录排除于冲突检测 ──

func TestScheduleService_ArchivedExcludedFromConflicts(t *testing.T) {
	svc, _ := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), created.ID, "admin-001"); err != nil {
		t.Fatalf("归档应成功: %v", err)
	}

	// 同一时段重新创建应成功
	if _, err := svc.Create(context.Background(), validCreateRequest(), "admin-001"); err != nil {
		t.Errorf("归档记录不应参与冲突检测: %v", err)
	}
}

// ── CheckConflicts / CheckCapacity 测试 ──

func TestScheduleService_CheckConflicts_Preview(t *testing.T) {
	svc, mocks := setupTestScheduleService()

	if _, err := svc.Create(context.Background(), validCreateRequest(), "admin-001"); err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	before := len(mocks.schedule.schedules)

	report, err := svc.CheckConflicts(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("CheckConflicts 应成功: %v", err)
	}
	if !report.HasConflict {
		t.Error("期望预检检出冲突")
	}
	if len(mocks.schedule.schedules) != before {
		t.Error("预检不应写入任何记录")
	}
}

func TestScheduleService_CheckCapacity(t *testing.T) {
	svc, mocks := setupTestScheduleService()

	created, err := svc.Create(context.Background(), validCreateRequest(), "admin-001")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	// 未超员：无通知
	resp, err := svc.CheckCapacity(context.Background(), created.ID, &dto.CapacityCheckRequest{EnrolledCount: 30})
	if err != nil {
		t.Fatalf("CheckCapacity 应成功: %v", err)
	}
	if resp.Exceeded || resp.Available != 10 {
		t.Errorf("期望 Exceeded=false Available=10，实际: %+v", resp)
	}
	if len(mocks.notification.notifications) != 0 {
		t.Error("未超员不应投递通知")
	}

	// 超员：高优通知但不报错
	resp, err = svc.CheckCapacity(context.Background(), created.ID, &dto.CapacityCheckRequest{EnrolledCount: 45})
	if err != nil {
		t.Fatalf("超员不应报错: %v", err)
	}
	if !resp.Exceeded {
		t.Error("期望 Exceeded=true")
	}
	if len(mocks.notification.notifications) != 1 {
		t.Fatalf("期望 1 条通知，实际: %d", len(mocks.notification.notifications))
	}
	if mocks.notification.notifications[0].Priority != model.NotificationPriorityHigh {
		t.Error("超员通知应为高优先级")
	}
}

// [自证通过] internal/service/schedule_service_test.go
