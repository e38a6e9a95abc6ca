package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SeedIfEmpty adds demo data when the store holds no teachers. It reports
// whether data was added.
func (s *Service) SeedIfEmpty(ctx context.Context) (bool, error) {
	teachers, err := s.store.ListTeachers(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check existing data: %w", err)
	}
	if len(teachers) > 0 {
		s.log.Info("existing data found, skipping seed", zap.Int("teachers", len(teachers)))
		return false, nil
	}

	s.log.Info("no teachers found, adding seed data")

	teacher, err := s.CreateTeacher(ctx, "Grace Hopper", "grace@example.com")
	if err != nil {
		return false, err
	}
	goCourse, err := s.CreateCourse(ctx, "Go Backend", "Services and data access in Go", teacher.ID.Hex())
	if err != nil {
		return false, err
	}
	if _, err := s.CreateCourse(ctx, "GraphQL APIs", "Schema design and resolvers", teacher.ID.Hex()); err != nil {
		return false, err
	}

	for _, st := range []struct{ name, email string }{
		{"Alice", "alice@example.com"},
		{"Bob", "bob@example.com"},
		{"Charlie", "charlie@example.com"},
	} {
		student, err := s.CreateStudent(ctx, st.name, st.email)
		if err != nil {
			return false, err
		}
		if _, err := s.EnrollStudentInCourse(ctx, student.ID.Hex(), goCourse.ID.Hex()); err != nil {
			return false, err
		}
	}

	s.log.Info("seed data added")
	return true, nil
}
