package course_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
	dummydb "github.com/darasahq/darasa/storage/database/dummy"
	testutil "github.com/darasahq/darasa/tests"
)

type nopLogger struct{}

var _ core.Logger = (*nopLogger)(nil)

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (course.Service, course.Repository, user.User) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	crsRepo := dummydb.NewCourseRepository(db)
	usrRepo := dummydb.NewUserRepository(db)

	fac := testutil.CreateUser(t, usrRepo, "Fac", "Ulty", "fac", "fac@test.cd", "", []string{user.RoleFaculty}, true)
	return course.NewService(crsRepo, nopLogger{}), crsRepo, fac
}

func TestService_Create(t *testing.T) {
	svc, _, fac := setup(t)
	ctx := context.Background()

	crs, err := svc.Create(ctx, course.NewCourse{Code: "go101", Title: "Intro to Go", FacultyID: fac.ID})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if crs.ID == "" {
		t.Error("Create() returned course without ID")
	}
	if crs.IsPublished {
		t.Error("Create() returned a published course; new courses start unpublished")
	}

	if err = svc.CheckCodeUniqueness(ctx, "go101"); err == nil {
		t.Error("CheckCodeUniqueness() = nil; want validation error for duplicate code")
	}
	// the created course itself can be excluded
	if err = svc.CheckCodeUniqueness(ctx, "go101", crs); err != nil {
		t.Errorf("CheckCodeUniqueness() with exclusion failed: %v", err)
	}
}

func TestService_Enroll(t *testing.T) {
	svc, crsRepo, fac := setup(t)
	ctx := context.Background()

	published := testutil.CreateCourse(t, crsRepo, "go101", "Intro to Go", fac.ID, true)
	unpublished := testutil.CreateCourse(t, crsRepo, "go201", "Advanced Go", fac.ID, false)

	t.Run("unknown course", func(t *testing.T) {
		if _, err := svc.Enroll(ctx, "nope", "student1"); errors.Cause(err) != course.ErrNotFound {
			t.Errorf("Enroll() error = %v; want %v", err, course.ErrNotFound)
		}
	})

	t.Run("unpublished course", func(t *testing.T) {
		_, err := svc.Enroll(ctx, unpublished.ID, "student1")
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Enroll() error = %v; want validation error", err)
		}
	})

	t.Run("published course", func(t *testing.T) {
		enr, err := svc.Enroll(ctx, published.ID, "student1")
		if err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
		if enr.CourseID != published.ID || enr.StudentID != "student1" {
			t.Errorf("Enroll() = %+v; want enrollment for course %q", enr, published.ID)
		}
	})

	t.Run("double enrollment", func(t *testing.T) {
		if _, err := svc.Enroll(ctx, published.ID, "student1"); err == nil {
			t.Error("Enroll() = nil; enrolling twice must fail")
		}
	})

	t.Run("student courses", func(t *testing.T) {
		courses, err := svc.StudentCourses(ctx, "student1")
		if err != nil {
			t.Fatalf("StudentCourses() failed: %v", err)
		}
		if len(courses) != 1 || courses[0].ID != published.ID {
			t.Errorf("StudentCourses() = %+v; want the single enrolled course", courses)
		}
	})
}

func TestService_Unenroll(t *testing.T) {
	svc, crsRepo, fac := setup(t)
	ctx := context.Background()

	crs := testutil.CreateCourse(t, crsRepo, "go101", "Intro to Go", fac.ID, true)

	if err := svc.Unenroll(ctx, crs.ID, "student1"); errors.Cause(err) != course.ErrNotEnrolled {
		t.Errorf("Unenroll() error = %v; want %v", err, course.ErrNotEnrolled)
	}

	if _, err := svc.Enroll(ctx, crs.ID, "student1"); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if err := svc.Unenroll(ctx, crs.ID, "student1"); err != nil {
		t.Fatalf("Unenroll() failed: %v", err)
	}

	enrs, err := svc.Enrollments(ctx, crs.ID)
	if err != nil {
		t.Fatalf("Enrollments() failed: %v", err)
	}
	if len(enrs) != 0 {
		t.Errorf("Enrollments() = %+v after unenroll; want none", enrs)
	}
}

func TestService_Update(t *testing.T) {
	svc, crsRepo, fac := setup(t)
	ctx := context.Background()

	crs := testutil.CreateCourse(t, crsRepo, "go101", "Intro to Go", fac.ID, false)

	published := true
	got, err := svc.Update(ctx, crs.ID, course.UpdateCourse{Title: "Intro to Go, 2nd ed", IsPublished: &published})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if got.Title != "Intro to Go, 2nd ed" {
		t.Errorf("Update() Title = %q; want %q", got.Title, "Intro to Go, 2nd ed")
	}
	if !got.IsPublished {
		t.Error("Update() IsPublished = false; want true")
	}
}
