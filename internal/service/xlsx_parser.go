package service

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
)

// xlsx 导入模板列名（表头大小写与空格不敏感）
// 缺省列留空即可，解析阶段不做业务校验，交由导入管线逐行处理

var errWorkbookEmpty = errors.New("工作簿无数据行")

// ParseScheduleWorkbook 解析排期导入工作簿的首个工作表
// 首行为表头，按列名映射；空行跳过
func ParseScheduleWorkbook(r io.Reader) ([]dto.RawScheduleRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errWorkbookEmpty
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errWorkbookEmpty
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", "_"))
		if key != "" {
			cols[key] = i
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	result := make([]dto.RawScheduleRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		empty := true
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		maxStudents := 0
		if v := cell(row, "max_students"); v != "" {
			// 非数字留 0，由导入管线回落到默认容量
			maxStudents, _ = strconv.Atoi(v)
		}

		result = append(result, dto.RawScheduleRow{
			SubjectID:           cell(row, "subject_id"),
			SubjectCode:         cell(row, "subject_code"),
			SubjectName:         cell(row, "subject_name"),
			SectionID:           cell(row, "section_id"),
			SectionName:         cell(row, "section_name"),
			InstructorID:        cell(row, "instructor_id"),
			InstructorFirstName: cell(row, "instructor_first_name"),
			InstructorLastName:  cell(row, "instructor_last_name"),
			RoomID:              cell(row, "room_id"),
			RoomNumber:          cell(row, "room_number"),
			DayOfWeek:           cell(row, "day_of_week"),
			StartTime:           cell(row, "start_time"),
			EndTime:             cell(row, "end_time"),
			SemesterID:          cell(row, "semester_id"),
			MaxStudents:         maxStudents,
		})
	}

	if len(result) == 0 {
		return nil, errWorkbookEmpty
	}
	return result, nil
}
