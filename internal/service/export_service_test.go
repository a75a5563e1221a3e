package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *mockRepos) {
	repo, mocks := newMockRepository()
	seedScheduleEntities(mocks)
	svc := NewExportService(repo, NewFixedClock(date(2024, 10, 1)), zap.NewNop())
	return svc, mocks
}

func seedExportSchedule(mocks *mockRepos, id, day, start, end, status string) {
	instructor := "ins-001"
	mocks.schedule.schedules[id] = &model.ClassSchedule{
		ScheduleID:   id,
		SubjectID:    "sub-001",
		SectionID:    "sec-001",
		InstructorID: &instructor,
		RoomID:       "room-101",
		DayOfWeek:    day,
		StartTime:    start,
		EndTime:      end,
		SemesterID:   "sem-001",
		Status:       status,
		MaxStudents:  40,
		Subject:      mocks.subject.subjects["sub-001"],
		Section:      mocks.section.sections["sec-001"],
		Instructor:   mocks.instructor.instructors["ins-001"],
		Room:         mocks.room.rooms["room-101"],
	}
}

// ── ExportTimetableXLSX 测试 ──

func TestExportService_XLSX_SemesterNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportTimetableXLSX(context.Background(), "sem-999")
	if !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}
}

func TestExportService_XLSX_NoSchedules(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportTimetableXLSX(context.Background(), "sem-001")
	if !errors.Is(err, ErrExportNoSchedules) {
		t.Errorf("期望 ErrExportNoSchedules，实际: %v", err)
	}
}

func TestExportService_XLSX_Success(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedExportSchedule(mocks, "sch-001", "monday", "09:00", "10:00", model.ScheduleStatusActive)
	seedExportSchedule(mocks, "sch-002", "wednesday", "13:00", "14:30", model.ScheduleStatusActive)

	buf, filename, err := svc.ExportTimetableXLSX(context.Background(), "sem-001")
	if err != nil {
		t.Fatalf("ExportTimetableXLSX 应成功: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("导出内容不应为空")
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("期望 .xlsx 文件名，实际: %s", filename)
	}
}

func TestExportService_XLSX_CancelledExcluded(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedExportSchedule(mocks, "sch-001", "monday", "09:00", "10:00", model.ScheduleStatusCancelled)

	_, _, err := svc.ExportTimetableXLSX(context.Background(), "sem-001")
	if !errors.Is(err, ErrExportNoSchedules) {
		t.Errorf("已取消排期不应导出，实际: %v", err)
	}
}

// ── ExportICS 测试 ──

func TestExportService_ICS_Success(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedExportSchedule(mocks, "sch-001", "monday", "09:00", "10:00", model.ScheduleStatusActive)

	buf, filename, err := svc.ExportICS(context.Background(), "sem-001")
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}

	content := buf.String()
	if !strings.Contains(content, "BEGIN:VCALENDAR") {
		t.Error("期望 VCALENDAR 头")
	}
	if !strings.Contains(content, "RRULE:FREQ=WEEKLY") {
		t.Error("期望每周重复规则")
	}
	if !strings.Contains(content, "UNTIL=20241215") {
		t.Error("重复规则应截止于学期结束日")
	}
	if !strings.Contains(content, "LOCATION:101") {
		t.Error("期望教室编号作为 LOCATION")
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("期望 .ics 文件名，实际: %s", filename)
	}
}

// 学期开始日 2024-08-01 为周四，首个周一应为 2024-08-05
func TestExportService_ICS_FirstOccurrence(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedExportSchedule(mocks, "sch-001", "monday", "09:00", "10:00", model.ScheduleStatusActive)

	buf, _, err := svc.ExportICS(context.Background(), "sem-001")
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}
	if !strings.Contains(buf.String(), "20240805T090000") {
		t.Error("DTSTART 应为学期开始后的首个周一 09:00")
	}
}

// [自证通过] internal/service/export_service_test.go
