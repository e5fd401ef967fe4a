package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrCodeExists      = errors.New("a course with this code already exists")
	ErrNotPublished    = errors.New("course is not open for enrollment")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
	ErrNotEnrolled     = errors.New("student is not enrolled in this course")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseByCode(ctx context.Context, code string) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Code or Course.Title.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, isPublished *bool) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, courseID, studentID string) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, courseID, studentID string) error
		QueryEnrollments(ctx context.Context, courseID string) ([]Enrollment, error)
		QueryStudentCourses(ctx context.Context, studentID string) ([]Course, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetByCode(ctx context.Context, code string) (Course, error)
		CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
		Enroll(ctx context.Context, courseID, studentID string) (Enrollment, error)
		Unenroll(ctx context.Context, courseID, studentID string) error
		Enrollments(ctx context.Context, courseID string) ([]Enrollment, error)
		StudentCourses(ctx context.Context, studentID string) ([]Course, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, exclCourses...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Code:        nc.Code,
		Title:       nc.Title,
		Description: nc.Description,
		FacultyID:   nc.FacultyID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) GetByCode(ctx context.Context, code string) (Course, error) {
	return svc.repo.GetCourseByCode(ctx, core.CleanString(code, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:          id,
		Title:       uc.Title,
		Description: uc.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateCourse(ctx, crs, uc.IsPublished)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

// Enroll registers a student into a published course; enrolling twice is rejected.
func (svc *service) Enroll(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !crs.IsPublished {
		return Enrollment{}, core.NewValidationError(ErrNotPublished)
	}
	if _, err := svc.repo.GetEnrollment(ctx, courseID, studentID); err == nil {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	} else if errors.Cause(err) != ErrNotEnrolled {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}

	return svc.repo.CreateEnrollment(ctx, Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		EnrolledAt: time.Now().UTC(),
	})
}

func (svc *service) Unenroll(ctx context.Context, courseID, studentID string) error {
	if _, err := svc.repo.GetEnrollment(ctx, courseID, studentID); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, courseID, studentID)
}

func (svc *service) Enrollments(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, courseID)
}

func (svc *service) StudentCourses(ctx context.Context, studentID string) ([]Course, error) {
	return svc.repo.QueryStudentCourses(ctx, studentID)
}
