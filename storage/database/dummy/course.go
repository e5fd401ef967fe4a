package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, *c)
	}
	return courses
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, crs := range repo.query() {
		if crs.Code != code {
			continue
		}
		excluded := false
		for _, excl := range excludedCourses {
			if excl.ID == crs.ID {
				excluded = true
				break
			}
		}
		if !excluded {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, crs := range repo.query() {
		if crs.Code == code {
			return crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.query()
	if filter == nil {
		return courses, nil
	}

	if filter.Search != "" {
		var filtered []course.Course
		search := strings.ToLower(filter.Search)
		for _, c := range courses {
			if strings.Contains(strings.ToLower(c.Code), search) ||
				strings.Contains(strings.ToLower(c.Title), search) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.FacultyID != "" {
		var filtered []course.Course
		for _, c := range courses {
			if c.FacultyID == filter.FacultyID {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.IsPublished != nil {
		var filtered []course.Course
		for _, c := range courses {
			if c.IsPublished == *filter.IsPublished {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}

	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isPublished *bool) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origCrs, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if crs.Title != "" {
		origCrs.Title = crs.Title
	}
	if crs.Description != "" {
		origCrs.Description = crs.Description
	}
	if isPublished != nil {
		origCrs.IsPublished = *isPublished
	}
	origCrs.UpdatedAt = crs.UpdatedAt

	repo.db.table[crs.ID] = origCrs
	return *origCrs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
		delete(repo.db.enrollments, id)
	}
	return nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.enrollments[enr.CourseID] = append(repo.db.enrollments[enr.CourseID], enr)
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, courseID, studentID string) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.enrollments[courseID] {
		if enr.StudentID == studentID {
			return enr, nil
		}
	}
	return course.Enrollment{}, course.ErrNotEnrolled
}

func (repo *courseRepository) DeleteEnrollment(ctx context.Context, courseID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	enrs := repo.db.enrollments[courseID]
	for i, enr := range enrs {
		if enr.StudentID == studentID {
			repo.db.enrollments[courseID] = append(enrs[:i], enrs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]course.Enrollment, len(repo.db.enrollments[courseID]))
	copy(enrs, repo.db.enrollments[courseID])
	return enrs, nil
}

func (repo *courseRepository) QueryStudentCourses(ctx context.Context, studentID string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.Course
	for courseID, enrs := range repo.db.enrollments {
		for _, enr := range enrs {
			if enr.StudentID != studentID {
				continue
			}
			if crs, ok := repo.db.table[courseID]; ok {
				courses = append(courses, *crs)
			}
			break
		}
	}
	return courses, nil
}
