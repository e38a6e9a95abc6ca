package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"school-graphql-server-go/service"
)

func (r *Resolver) CreateStudent(ctx context.Context, args struct {
	Name  string
	Email string
}) (*studentResolver, error) {
	s, err := r.svc.CreateStudent(ctx, args.Name, args.Email)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapStudent(r.svc, s), nil
}

func (r *Resolver) CreateTeacher(ctx context.Context, args struct {
	Name  string
	Email string
}) (*teacherResolver, error) {
	t, err := r.svc.CreateTeacher(ctx, args.Name, args.Email)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapTeacher(r.svc, t), nil
}

func (r *Resolver) CreateCourse(ctx context.Context, args struct {
	Title       string
	Description string
	TeacherID   graphql.ID
}) (*courseResolver, error) {
	c, err := r.svc.CreateCourse(ctx, args.Title, args.Description, string(args.TeacherID))
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourse(r.svc, c), nil
}

func (r *Resolver) DeleteStudent(ctx context.Context, args idArgs) (bool, error) {
	ok, err := r.svc.DeleteStudent(ctx, string(args.ID))
	return ok, resolverError(err)
}

func (r *Resolver) DeleteTeacher(ctx context.Context, args idArgs) (bool, error) {
	ok, err := r.svc.DeleteTeacher(ctx, string(args.ID))
	return ok, resolverError(err)
}

func (r *Resolver) DeleteCourse(ctx context.Context, args idArgs) (bool, error) {
	ok, err := r.svc.DeleteCourse(ctx, string(args.ID))
	return ok, resolverError(err)
}

type updatePersonArgs struct {
	ID    graphql.ID
	Name  *string
	Email *string
}

func (a updatePersonArgs) patch() service.PersonPatch {
	return service.PersonPatch{Name: a.Name, Email: a.Email}
}

func (r *Resolver) UpdateStudent(ctx context.Context, args updatePersonArgs) (*studentResolver, error) {
	s, err := r.svc.UpdateStudent(ctx, string(args.ID), args.patch())
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapStudent(r.svc, s), nil
}

func (r *Resolver) UpdateTeacher(ctx context.Context, args updatePersonArgs) (*teacherResolver, error) {
	t, err := r.svc.UpdateTeacher(ctx, string(args.ID), args.patch())
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapTeacher(r.svc, t), nil
}

func (r *Resolver) UpdateCourse(ctx context.Context, args struct {
	ID          graphql.ID
	Title       *string
	Description *string
	TeacherID   *graphql.ID
}) (*courseResolver, error) {
	p := service.CoursePatch{Title: args.Title, Description: args.Description}
	if args.TeacherID != nil {
		tid := string(*args.TeacherID)
		p.TeacherID = &tid
	}
	c, err := r.svc.UpdateCourse(ctx, string(args.ID), p)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourse(r.svc, c), nil
}

type enrollmentArgs struct {
	StudentID graphql.ID
	CourseID  graphql.ID
}

func (r *Resolver) EnrollStudentInCourse(ctx context.Context, args enrollmentArgs) (*courseResolver, error) {
	c, err := r.svc.EnrollStudentInCourse(ctx, string(args.StudentID), string(args.CourseID))
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourse(r.svc, c), nil
}

func (r *Resolver) RemoveStudentFromCourse(ctx context.Context, args enrollmentArgs) (*courseResolver, error) {
	c, err := r.svc.RemoveStudentFromCourse(ctx, string(args.StudentID), string(args.CourseID))
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourse(r.svc, c), nil
}
