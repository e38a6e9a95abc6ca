package graph

import (
	"context"
	_ "embed"
	"errors"

	graphql "github.com/graph-gophers/graphql-go"
	"school-graphql-server-go/apperror"
	"school-graphql-server-go/models"
	"school-graphql-server-go/service"
)

//go:embed schema.graphql
var Schema string

// Resolver is the root resolver for the GraphQL schema. It serves both the
// Query and the Mutation root types.
type Resolver struct {
	svc *service.Service
}

// NewResolver creates a new resolver over the given service
func NewResolver(svc *service.Service) *Resolver {
	return &Resolver{svc: svc}
}

// NewSchema parses the schema and binds it to the resolvers.
func NewSchema(svc *service.Service, opts ...graphql.SchemaOpt) (*graphql.Schema, error) {
	return graphql.ParseSchema(Schema, NewResolver(svc), opts...)
}

// resolverError returns application errors unwrapped so the executor can
// read their extensions. A nil error stays nil.
func resolverError(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return err
}

type studentResolver struct {
	svc *service.Service
	m   models.Student
}

func (r *studentResolver) ID() graphql.ID {
	return graphql.ID(r.m.ID.Hex())
}

func (r *studentResolver) Name() string {
	return r.m.Name
}

func (r *studentResolver) Email() string {
	return r.m.Email
}

func (r *studentResolver) EnrolledCourses(ctx context.Context) ([]*courseResolver, error) {
	courses, err := r.svc.EnrolledCourses(ctx, &r.m)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourses(r.svc, courses), nil
}

type teacherResolver struct {
	svc *service.Service
	m   models.Teacher
}

func (r *teacherResolver) ID() graphql.ID {
	return graphql.ID(r.m.ID.Hex())
}

func (r *teacherResolver) Name() string {
	return r.m.Name
}

func (r *teacherResolver) Email() string {
	return r.m.Email
}

func (r *teacherResolver) CoursesTaught(ctx context.Context) ([]*courseResolver, error) {
	courses, err := r.svc.CoursesTaught(ctx, &r.m)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourses(r.svc, courses), nil
}

type courseResolver struct {
	svc *service.Service
	m   models.Course
}

func (r *courseResolver) ID() graphql.ID {
	return graphql.ID(r.m.ID.Hex())
}

func (r *courseResolver) Title() string {
	return r.m.Title
}

func (r *courseResolver) Description() string {
	return r.m.Description
}

// TeacherID resolves the teacherId field to the teacher document.
func (r *courseResolver) TeacherID(ctx context.Context) (*teacherResolver, error) {
	t, err := r.svc.CourseTeacher(ctx, &r.m)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapTeacher(r.svc, t), nil
}

// StudentIDs resolves the studentIds field to student documents.
func (r *courseResolver) StudentIDs(ctx context.Context) ([]*studentResolver, error) {
	students, err := r.svc.CourseStudents(ctx, &r.m)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapStudents(r.svc, students), nil
}

func wrapStudent(svc *service.Service, s *models.Student) *studentResolver {
	if s == nil {
		return nil
	}
	return &studentResolver{svc: svc, m: *s}
}

func wrapTeacher(svc *service.Service, t *models.Teacher) *teacherResolver {
	if t == nil {
		return nil
	}
	return &teacherResolver{svc: svc, m: *t}
}

func wrapCourse(svc *service.Service, c *models.Course) *courseResolver {
	if c == nil {
		return nil
	}
	return &courseResolver{svc: svc, m: *c}
}

func wrapStudents(svc *service.Service, students []models.Student) []*studentResolver {
	out := make([]*studentResolver, len(students))
	for i := range students {
		out[i] = &studentResolver{svc: svc, m: students[i]}
	}
	return out
}

func wrapTeachers(svc *service.Service, teachers []models.Teacher) []*teacherResolver {
	out := make([]*teacherResolver, len(teachers))
	for i := range teachers {
		out[i] = &teacherResolver{svc: svc, m: teachers[i]}
	}
	return out
}

func wrapCourses(svc *service.Service, courses []models.Course) []*courseResolver {
	out := make([]*courseResolver, len(courses))
	for i := range courses {
		out[i] = &courseResolver{svc: svc, m: courses[i]}
	}
	return out
}
