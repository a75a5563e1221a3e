package interval

import (
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/ej-follero/icct-student-attendance-system-sub003/pkg/errors"
)

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	s, _ := time.Parse("2006-01-02", start)
	e, _ := time.Parse("2006-01-02", end)
	r, err := NewDateRange(s, e)
	if err != nil {
		t.Fatalf("构造区间失败: %v", err)
	}
	return r
}

// ── NewDateRange 测试 ──

func TestNewDateRange_EndBeforeStart(t *testing.T) {
	s, _ := time.Parse("2006-01-02", "2024-12-15")
	e, _ := time.Parse("2006-01-02", "2024-08-01")
	_, err := NewDateRange(s, e)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

func TestNewDateRange_ZeroDate(t *testing.T) {
	e, _ := time.Parse("2006-01-02", "2024-12-15")
	_, err := NewDateRange(time.Time{}, e)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
}

// ── Overlaps 测试 ──

func TestOverlaps_Symmetry(t *testing.T) {
	a := mustRange(t, "2024-08-01", "2024-12-15")
	b := mustRange(t, "2024-12-01", "2025-05-20")
	if Overlaps(a, b) != Overlaps(b, a) {
		t.Error("Overlaps 应满足对称性")
	}
	if !Overlaps(a, b) {
		t.Error("相交区间应判定为重叠")
	}
}

func TestOverlaps_Reflexivity(t *testing.T) {
	a := mustRange(t, "2024-08-01", "2024-12-15")
	if !Overlaps(a, a) {
		t.Error("合法区间与自身应判定为重叠")
	}
}

func TestOverlaps_TouchingBoundary(t *testing.T) {
	// 首尾相接按闭区间语义计为重叠
	a := mustRange(t, "2024-08-01", "2024-12-15")
	b := mustRange(t, "2024-12-15", "2025-05-20")
	if !Overlaps(a, b) {
		t.Error("边界相接的区间应判定为重叠")
	}
}

func TestOverlaps_Disjoint(t *testing.T) {
	a := mustRange(t, "2024-08-01", "2024-12-15")
	b := mustRange(t, "2025-01-06", "2025-05-20")
	if Overlaps(a, b) {
		t.Error("不相交区间不应判定为重叠")
	}
}

// ── Contains 测试 ──

func TestContains(t *testing.T) {
	r := mustRange(t, "2024-08-01", "2024-12-15")

	inside, _ := time.Parse("2006-01-02", "2024-10-01")
	if !Contains(r, inside) {
		t.Error("区间内的日期应判定为包含")
	}

	boundary, _ := time.Parse("2006-01-02", "2024-12-15")
	if !Contains(r, boundary) {
		t.Error("区间边界日期应判定为包含")
	}

	outside, _ := time.Parse("2006-01-02", "2024-12-20")
	if Contains(r, outside) {
		t.Error("区间外的日期不应判定为包含")
	}
}

// ── OverlapsTime 测试 ──

func TestOverlapsTime_Basic(t *testing.T) {
	ok, err := OverlapsTime("09:00", "10:00", "09:30", "10:30")
	if err != nil {
		t.Fatalf("OverlapsTime 应成功: %v", err)
	}
	if !ok {
		t.Error("相交时段应判定为重叠")
	}
}

func TestOverlapsTime_TouchingBoundary(t *testing.T) {
	// 10:00 结束与 10:00 开始按闭区间计为重叠
	ok, err := OverlapsTime("10:00", "11:00", "09:00", "10:00")
	if err != nil {
		t.Fatalf("OverlapsTime 应成功: %v", err)
	}
	if !ok {
		t.Error("边界相接的时段应判定为重叠")
	}
}

func TestOverlapsTime_Disjoint(t *testing.T) {
	ok, err := OverlapsTime("08:00", "09:00", "09:30", "10:30")
	if err != nil {
		t.Fatalf("OverlapsTime 应成功: %v", err)
	}
	if ok {
		t.Error("不相交时段不应判定为重叠")
	}
}

func TestOverlapsTime_MalformedInput(t *testing.T) {
	cases := [][4]string{
		{"9:00", "10:00", "09:00", "10:00"},  // 未零填充
		{"09:00", "25:00", "09:00", "10:00"}, // 非法小时
		{"09:00", "10:61", "09:00", "10:00"}, // 非法分钟
		{"10:00", "09:00", "09:00", "10:00"}, // 起止倒置
		{"", "10:00", "09:00", "10:00"},      // 缺失
	}
	for _, c := range cases {
		_, err := OverlapsTime(c[0], c[1], c[2], c[3])
		if !errors.Is(err, pkgerrors.ErrValidation) {
			t.Errorf("输入 %v 期望 ErrValidation，实际: %v", c, err)
		}
	}
}

func TestValidateClockRange(t *testing.T) {
	if err := ValidateClockRange("07:30", "09:00"); err != nil {
		t.Errorf("合法时段不应报错: %v", err)
	}
	if err := ValidateClockRange("09:00", "09:00"); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("起止相等应报 ErrValidation，实际: %v", err)
	}
}
