package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
)

type idArgs struct {
	ID graphql.ID
}

func (r *Resolver) Students(ctx context.Context) ([]*studentResolver, error) {
	students, err := r.svc.ListStudents(ctx)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapStudents(r.svc, students), nil
}

func (r *Resolver) Student(ctx context.Context, args idArgs) (*studentResolver, error) {
	s, err := r.svc.Student(ctx, string(args.ID))
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapStudent(r.svc, s), nil
}

func (r *Resolver) Teachers(ctx context.Context) ([]*teacherResolver, error) {
	teachers, err := r.svc.ListTeachers(ctx)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapTeachers(r.svc, teachers), nil
}

func (r *Resolver) Teacher(ctx context.Context, args idArgs) (*teacherResolver, error) {
	t, err := r.svc.Teacher(ctx, string(args.ID))
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapTeacher(r.svc, t), nil
}

func (r *Resolver) Courses(ctx context.Context) ([]*courseResolver, error) {
	courses, err := r.svc.ListCourses(ctx)
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourses(r.svc, courses), nil
}

func (r *Resolver) Course(ctx context.Context, args idArgs) (*courseResolver, error) {
	c, err := r.svc.Course(ctx, string(args.ID))
	if err != nil {
		return nil, resolverError(err)
	}
	return wrapCourse(r.svc, c), nil
}
