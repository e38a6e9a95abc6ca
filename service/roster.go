package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"school-graphql-server-go/apperror"
	"school-graphql-server-go/logger"
	"school-graphql-server-go/models"
	"school-graphql-server-go/roster"
)

func courseNotFound(id string) *apperror.Error {
	return apperror.ErrNotFound.WithMessage(fmt.Sprintf("course %s not found", id))
}

// ImportStudents creates one student per row. When courseID is set the
// course must exist and every imported student is enrolled in it. Rows
// before a failure stay imported; the count reports how many were.
func (s *Service) ImportStudents(ctx context.Context, rows []roster.Row, courseID string) (int, error) {
	var course *models.Course
	if courseID != "" {
		c, err := s.Course(ctx, courseID)
		if err != nil {
			return 0, err
		}
		if c == nil {
			return 0, courseNotFound(courseID)
		}
		course = c
	}

	imported := 0
	for _, row := range rows {
		st, err := s.CreateStudent(ctx, row.Name, row.Email)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", row.Line, err)
		}
		imported++
		if course == nil {
			continue
		}
		if _, err := s.EnrollStudentInCourse(ctx, st.ID.Hex(), course.ID.Hex()); err != nil {
			return imported, fmt.Errorf("row %d: %w", row.Line, err)
		}
	}

	fields := []zap.Field{zap.Int("imported", imported)}
	if course != nil {
		fields = append(fields, logger.ID("course_id", course.ID))
	}
	s.log.Info("imported students", fields...)
	return imported, nil
}

// CourseRoster returns a course and its enrolled students. A missing course
// is a not_found error.
func (s *Service) CourseRoster(ctx context.Context, courseID string) (*models.Course, []models.Student, error) {
	c, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, courseNotFound(courseID)
	}
	students, err := s.CourseStudents(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return c, students, nil
}
