package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

type dbCourse struct {
	ID          string    `db:"id"`
	Code        string    `db:"code"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	FacultyID   string    `db:"faculty_id"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (c dbCourse) unpack() course.Course {
	return course.Course(c)
}

type dbEnrollment struct {
	CourseID   string    `db:"course_id"`
	StudentID  string    `db:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at"`
}

func (e dbEnrollment) unpack() course.Enrollment {
	return course.Enrollment(e)
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	q := "SELECT EXISTS (SELECT 1 FROM course WHERE code = ?"
	args := []interface{}{code}

	if len(excludedCourses) > 0 {
		ids := make([]string, 0, len(excludedCourses))
		for _, c := range excludedCourses {
			ids = append(ids, c.ID)
		}
		inQ, inArgs, err := sqlx.In("id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "expanding excluded IDs")
		}
		q += " AND " + inQ
		args = append(args, inArgs...)
	}
	q += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	if exists {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	c := dbCourse(crs)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	q := `INSERT INTO course (id, code, title, description, faculty_id, is_published, created_at, updated_at)
VALUES (:id, :code, :title, :description, :faculty_id, :is_published, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, c); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) getCourseBy(ctx context.Context, where string, args ...interface{}) (course.Course, error) {
	var c dbCourse
	q := "SELECT * FROM course WHERE " + where
	if err := repo.db.GetContext(ctx, &c, repo.db.Rebind(q), args...); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return c.unpack(), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return repo.getCourseBy(ctx, "id = ?", id)
}

func (repo courseRepository) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	return repo.getCourseBy(ctx, "code = ?", code)
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, "(code ILIKE ? OR title ILIKE ?)")
			args = append(args, val, val)
		}
		if filter.FacultyID != "" {
			conds = append(conds, "faculty_id = ?")
			args = append(args, filter.FacultyID)
		}
		if filter.IsPublished != nil {
			conds = append(conds, "is_published = ?")
			args = append(args, *filter.IsPublished)
		}
	}

	q := "SELECT * FROM course"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderingClause(ordering, "code ASC")

	var rows []dbCourse
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, c := range rows {
		courses = append(courses, c.unpack())
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isPublished *bool) (course.Course, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{crs.UpdatedAt.UTC()}

	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if crs.Title != "" {
		set("title", crs.Title)
	}
	if crs.Description != "" {
		set("description", crs.Description)
	}
	if isPublished != nil {
		set("is_published", *isPublished)
	}

	q := fmt.Sprintf("UPDATE course SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, crs.ID)

	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM course WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "expanding IDs")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	e := dbEnrollment(enr)
	e.EnrolledAt = e.EnrolledAt.UTC()

	q := "INSERT INTO enrollment (course_id, student_id, enrolled_at) VALUES (:course_id, :student_id, :enrolled_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, e); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e.unpack(), nil
}

func (repo courseRepository) GetEnrollment(ctx context.Context, courseID, studentID string) (course.Enrollment, error) {
	var e dbEnrollment
	q := "SELECT * FROM enrollment WHERE course_id = ? AND student_id = ?"
	if err := repo.db.GetContext(ctx, &e, repo.db.Rebind(q), courseID, studentID); err != nil {
		return course.Enrollment{}, repo.trapNoRowsErr(err, course.ErrNotEnrolled, "finding enrollment")
	}
	return e.unpack(), nil
}

func (repo courseRepository) DeleteEnrollment(ctx context.Context, courseID, studentID string) error {
	q := "DELETE FROM enrollment WHERE course_id = ? AND student_id = ?"
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), courseID, studentID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return nil
}

func (repo courseRepository) QueryEnrollments(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	var rows []dbEnrollment
	q := "SELECT * FROM enrollment WHERE course_id = ? ORDER BY enrolled_at ASC"
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrs := make([]course.Enrollment, 0, len(rows))
	for _, e := range rows {
		enrs = append(enrs, e.unpack())
	}
	return enrs, nil
}

func (repo courseRepository) QueryStudentCourses(ctx context.Context, studentID string) ([]course.Course, error) {
	var rows []dbCourse
	q := `SELECT c.* FROM course c
JOIN enrollment e ON e.course_id = c.id
WHERE e.student_id = ?
ORDER BY e.enrolled_at ASC`
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), studentID); err != nil {
		return nil, errors.Wrap(err, "querying student courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, c := range rows {
		courses = append(courses, c.unpack())
	}
	return courses, nil
}
