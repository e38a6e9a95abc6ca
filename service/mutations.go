package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"school-graphql-server-go/apperror"
	"school-graphql-server-go/db"
	"school-graphql-server-go/logger"
	"school-graphql-server-go/models"
)

// CreateStudent inserts a student with no enrolled courses.
func (s *Service) CreateStudent(ctx context.Context, name, email string) (*models.Student, error) {
	st := &models.Student{
		Name:            name,
		Email:           email,
		EnrolledCourses: []primitive.ObjectID{},
	}
	if err := s.store.InsertStudent(ctx, st); err != nil {
		return nil, err
	}
	s.log.Info("created student", logger.ID("student_id", st.ID))
	return st, nil
}

// CreateTeacher inserts a teacher with no courses taught.
func (s *Service) CreateTeacher(ctx context.Context, name, email string) (*models.Teacher, error) {
	t := &models.Teacher{
		Name:          name,
		Email:         email,
		CoursesTaught: []primitive.ObjectID{},
	}
	if err := s.store.InsertTeacher(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("created teacher", logger.ID("teacher_id", t.ID))
	return t, nil
}

func teacherNotFound(id primitive.ObjectID) *apperror.Error {
	return apperror.ErrTeacherNotFound.WithMessage(fmt.Sprintf("teacher %s not found", id.Hex()))
}

// CreateCourse inserts a course taught by an existing teacher and records
// the course in the teacher's coursesTaught.
func (s *Service) CreateCourse(ctx context.Context, title, description, teacherID string) (*models.Course, error) {
	tid, err := parseID(teacherID)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:       title,
		Description: description,
		TeacherID:   &tid,
		StudentIDs:  []primitive.ObjectID{},
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		teacher, err := s.store.FindTeacher(ctx, tid)
		if err != nil {
			return err
		}
		if teacher == nil {
			return teacherNotFound(tid)
		}
		if err := s.store.InsertCourse(ctx, course); err != nil {
			return err
		}
		_, err = s.store.UpdateOne(ctx, db.Teachers, tid, db.PushID(models.FieldCoursesTaught, course.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("created course", logger.ID("course_id", course.ID), logger.ID("teacher_id", tid))
	return course, nil
}

// DeleteStudent removes a student and pulls it from every course roster.
// It returns false when the student does not exist.
func (s *Service) DeleteStudent(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}

	var deleted bool
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		deleted = false
		ok, err := s.store.DeleteOne(ctx, db.Students, oid)
		if err != nil || !ok {
			return err
		}
		deleted = true

		n, err := s.store.UpdateMany(ctx, db.Courses,
			db.Filter{Field: models.FieldStudentIDs, Value: oid},
			db.PullID(models.FieldStudentIDs, oid))
		if err != nil {
			return fmt.Errorf("remove student from courses: %w", err)
		}
		s.log.Debug("cascaded student delete", logger.ID("student_id", oid), zap.Int64("courses", n))
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info("deleted student", logger.ID("student_id", oid))
	}
	return deleted, nil
}

// DeleteTeacher removes a teacher and clears the teacher of every course it
// taught. The courses themselves are kept.
func (s *Service) DeleteTeacher(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}

	var deleted bool
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		deleted = false
		ok, err := s.store.DeleteOne(ctx, db.Teachers, oid)
		if err != nil || !ok {
			return err
		}
		deleted = true

		n, err := s.store.UpdateMany(ctx, db.Courses,
			db.Filter{Field: models.FieldTeacherID, Value: oid},
			db.SetField(models.FieldTeacherID, nil))
		if err != nil {
			return fmt.Errorf("clear teacher of courses: %w", err)
		}
		s.log.Debug("cascaded teacher delete", logger.ID("teacher_id", oid), zap.Int64("courses", n))
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info("deleted teacher", logger.ID("teacher_id", oid))
	}
	return deleted, nil
}

// DeleteCourse removes a course and pulls it from every teacher's
// coursesTaught and every student's enrolledCourses.
func (s *Service) DeleteCourse(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}

	var deleted bool
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		deleted = false
		ok, err := s.store.DeleteOne(ctx, db.Courses, oid)
		if err != nil || !ok {
			return err
		}
		deleted = true

		teachers, err := s.store.UpdateMany(ctx, db.Teachers,
			db.Filter{Field: models.FieldCoursesTaught, Value: oid},
			db.PullID(models.FieldCoursesTaught, oid))
		if err != nil {
			return fmt.Errorf("remove course from teachers: %w", err)
		}
		students, err := s.store.UpdateMany(ctx, db.Students,
			db.Filter{Field: models.FieldEnrolledCourses, Value: oid},
			db.PullID(models.FieldEnrolledCourses, oid))
		if err != nil {
			return fmt.Errorf("remove course from students: %w", err)
		}
		s.log.Debug("cascaded course delete", logger.ID("course_id", oid),
			zap.Int64("teachers", teachers), zap.Int64("students", students))
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info("deleted course", logger.ID("course_id", oid))
	}
	return deleted, nil
}

// UpdateStudent applies the provided fields and returns the student, or nil
// when it does not exist.
func (s *Service) UpdateStudent(ctx context.Context, id string, p PersonPatch) (*models.Student, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.UpdateOne(ctx, db.Students, oid, p.update())
	if err != nil || !ok {
		return nil, err
	}
	return s.store.FindStudent(ctx, oid)
}

// UpdateTeacher applies the provided fields and returns the teacher, or nil
// when it does not exist.
func (s *Service) UpdateTeacher(ctx context.Context, id string, p PersonPatch) (*models.Teacher, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.UpdateOne(ctx, db.Teachers, oid, p.update())
	if err != nil || !ok {
		return nil, err
	}
	return s.store.FindTeacher(ctx, oid)
}

// UpdateCourse applies the provided fields and returns the course, or nil
// when it does not exist. A new teacher must exist; the course ID moves from
// the previous teacher's coursesTaught to the new one's.
func (s *Service) UpdateCourse(ctx context.Context, id string, p CoursePatch) (*models.Course, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var newTeacher *primitive.ObjectID
	if provided(p.TeacherID) {
		tid, err := parseID(*p.TeacherID)
		if err != nil {
			return nil, err
		}
		newTeacher = &tid
	}

	var updated *models.Course
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		updated = nil
		course, err := s.store.FindCourse(ctx, oid)
		if err != nil || course == nil {
			return err
		}

		u := db.Update{Set: map[string]interface{}{}}
		if provided(p.Title) {
			u.Set[models.FieldTitle] = *p.Title
		}
		if provided(p.Description) {
			u.Set[models.FieldDescription] = *p.Description
		}

		var teacher *models.Teacher
		if newTeacher != nil {
			teacher, err = s.store.FindTeacher(ctx, *newTeacher)
			if err != nil {
				return err
			}
			if teacher == nil {
				return teacherNotFound(*newTeacher)
			}
			u.Set[models.FieldTeacherID] = *newTeacher
		}

		if _, err := s.store.UpdateOne(ctx, db.Courses, oid, u); err != nil {
			return err
		}

		if teacher != nil && (course.TeacherID == nil || *course.TeacherID != teacher.ID) {
			if course.TeacherID != nil {
				if _, err := s.store.UpdateOne(ctx, db.Teachers, *course.TeacherID, db.PullID(models.FieldCoursesTaught, oid)); err != nil {
					return fmt.Errorf("remove course from previous teacher: %w", err)
				}
			}
			if !models.ContainsID(teacher.CoursesTaught, oid) {
				if _, err := s.store.UpdateOne(ctx, db.Teachers, teacher.ID, db.PushID(models.FieldCoursesTaught, oid)); err != nil {
					return fmt.Errorf("add course to teacher: %w", err)
				}
			}
			s.log.Debug("reassigned course teacher", logger.ID("course_id", oid), logger.ID("teacher_id", teacher.ID))
		}

		updated, err = s.store.FindCourse(ctx, oid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EnrollStudentInCourse links a student and a course on both sides. It
// returns nil when either does not exist. Enrolling twice leaves both
// arrays unchanged.
func (s *Service) EnrollStudentInCourse(ctx context.Context, studentID, courseID string) (*models.Course, error) {
	sid, err := parseID(studentID)
	if err != nil {
		return nil, err
	}
	cid, err := parseID(courseID)
	if err != nil {
		return nil, err
	}

	var result *models.Course
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		result = nil
		student, err := s.store.FindStudent(ctx, sid)
		if err != nil {
			return err
		}
		course, err := s.store.FindCourse(ctx, cid)
		if err != nil {
			return err
		}
		if student == nil || course == nil {
			return nil
		}

		inCourse := models.ContainsID(course.StudentIDs, sid)
		inStudent := models.ContainsID(student.EnrolledCourses, cid)
		if inCourse && inStudent {
			result = course
			return nil
		}

		if !inStudent {
			if _, err := s.store.UpdateOne(ctx, db.Students, sid, db.PushID(models.FieldEnrolledCourses, cid)); err != nil {
				return fmt.Errorf("add course to student: %w", err)
			}
		}
		if !inCourse {
			if _, err := s.store.UpdateOne(ctx, db.Courses, cid, db.PushID(models.FieldStudentIDs, sid)); err != nil {
				return fmt.Errorf("add student to course: %w", err)
			}
		}
		s.log.Info("enrolled student", logger.ID("student_id", sid), logger.ID("course_id", cid))

		result, err = s.store.FindCourse(ctx, cid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveStudentFromCourse unlinks a student and a course on both sides. It
// returns nil when either does not exist.
func (s *Service) RemoveStudentFromCourse(ctx context.Context, studentID, courseID string) (*models.Course, error) {
	sid, err := parseID(studentID)
	if err != nil {
		return nil, err
	}
	cid, err := parseID(courseID)
	if err != nil {
		return nil, err
	}

	var result *models.Course
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		result = nil
		student, err := s.store.FindStudent(ctx, sid)
		if err != nil {
			return err
		}
		course, err := s.store.FindCourse(ctx, cid)
		if err != nil {
			return err
		}
		if student == nil || course == nil {
			return nil
		}

		if _, err := s.store.UpdateOne(ctx, db.Courses, cid, db.PullID(models.FieldStudentIDs, sid)); err != nil {
			return fmt.Errorf("remove student from course: %w", err)
		}
		if _, err := s.store.UpdateOne(ctx, db.Students, sid, db.PullID(models.FieldEnrolledCourses, cid)); err != nil {
			return fmt.Errorf("remove course from student: %w", err)
		}
		s.log.Info("removed student from course", logger.ID("student_id", sid), logger.ID("course_id", cid))

		result, err = s.store.FindCourse(ctx, cid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
