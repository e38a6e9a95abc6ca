package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"school-graphql-server-go/models"
)

func (s *Service) ListStudents(ctx context.Context) ([]models.Student, error) {
	return s.store.ListStudents(ctx)
}

func (s *Service) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return s.store.ListTeachers(ctx)
}

func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	return s.store.ListCourses(ctx)
}

// Student returns the student with the given ID, or nil when none exists.
func (s *Service) Student(ctx context.Context, id string) (*models.Student, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindStudent(ctx, oid)
}

// Teacher returns the teacher with the given ID, or nil when none exists.
func (s *Service) Teacher(ctx context.Context, id string) (*models.Teacher, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindTeacher(ctx, oid)
}

// Course returns the course with the given ID, or nil when none exists.
func (s *Service) Course(ctx context.Context, id string) (*models.Course, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindCourse(ctx, oid)
}

// EnrolledCourses resolves a student's course references. References to
// deleted courses are omitted.
func (s *Service) EnrolledCourses(ctx context.Context, st *models.Student) ([]models.Course, error) {
	return s.coursesIn(ctx, st.EnrolledCourses)
}

// CoursesTaught resolves a teacher's course references.
func (s *Service) CoursesTaught(ctx context.Context, t *models.Teacher) ([]models.Course, error) {
	return s.coursesIn(ctx, t.CoursesTaught)
}

// CourseTeacher resolves a course's teacher. A course without a teacher
// returns nil without a lookup; a stale reference also returns nil.
func (s *Service) CourseTeacher(ctx context.Context, c *models.Course) (*models.Teacher, error) {
	if c.TeacherID == nil {
		return nil, nil
	}
	return s.store.FindTeacher(ctx, *c.TeacherID)
}

// CourseStudents resolves a course's student references.
func (s *Service) CourseStudents(ctx context.Context, c *models.Course) ([]models.Student, error) {
	if len(c.StudentIDs) == 0 {
		return []models.Student{}, nil
	}
	return s.store.StudentsByIDs(ctx, c.StudentIDs)
}

func (s *Service) coursesIn(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	return s.store.CoursesByIDs(ctx, ids)
}
