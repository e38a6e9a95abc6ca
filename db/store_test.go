package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"school-graphql-server-go/models"
)

// storeContract exercises the behavior every backend shares.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("find missing returns nil", func(t *testing.T) {
		s := newStore(t)
		st, err := s.FindStudent(ctx, primitive.NewObjectID())
		require.NoError(t, err)
		assert.Nil(t, st)

		c, err := s.FindCourse(ctx, primitive.NewObjectID())
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("insert assigns ID and empty arrays", func(t *testing.T) {
		s := newStore(t)
		st := &models.Student{Name: "Alice", Email: "alice@example.com"}
		require.NoError(t, s.InsertStudent(ctx, st))
		require.False(t, st.ID.IsZero())

		got, err := s.FindStudent(ctx, st.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Empty(t, got.EnrolledCourses)

		teacher := &models.Teacher{Name: "Bob", Email: "bob@example.com"}
		require.NoError(t, s.InsertTeacher(ctx, teacher))
		gotT, err := s.FindTeacher(ctx, teacher.ID)
		require.NoError(t, err)
		require.NotNil(t, gotT)
		assert.Empty(t, gotT.CoursesTaught)
	})

	t.Run("course teacher reference round trips", func(t *testing.T) {
		s := newStore(t)
		tid := primitive.NewObjectID()
		c := &models.Course{Title: "Go", Description: "Systems", TeacherID: &tid}
		require.NoError(t, s.InsertCourse(ctx, c))

		got, err := s.FindCourse(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TeacherID)
		assert.Equal(t, tid, *got.TeacherID)

		ok, err := s.UpdateOne(ctx, Courses, c.ID, SetField(models.FieldTeacherID, nil))
		require.NoError(t, err)
		assert.True(t, ok)

		got, err = s.FindCourse(ctx, c.ID)
		require.NoError(t, err)
		assert.Nil(t, got.TeacherID)
	})

	t.Run("update one sets, pushes and pulls", func(t *testing.T) {
		s := newStore(t)
		st := &models.Student{Name: "Alice", Email: "a@example.com"}
		require.NoError(t, s.InsertStudent(ctx, st))
		c1, c2 := primitive.NewObjectID(), primitive.NewObjectID()

		ok, err := s.UpdateOne(ctx, Students, st.ID, PushID(models.FieldEnrolledCourses, c1))
		require.NoError(t, err)
		require.True(t, ok)
		_, err = s.UpdateOne(ctx, Students, st.ID, PushID(models.FieldEnrolledCourses, c2))
		require.NoError(t, err)
		_, err = s.UpdateOne(ctx, Students, st.ID, SetField(models.FieldEmail, "alice@example.com"))
		require.NoError(t, err)

		got, err := s.FindStudent(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{c1, c2}, got.EnrolledCourses)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, "alice@example.com", got.Email)

		_, err = s.UpdateOne(ctx, Students, st.ID, PullID(models.FieldEnrolledCourses, c1))
		require.NoError(t, err)
		got, err = s.FindStudent(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{c2}, got.EnrolledCourses)
	})

	t.Run("update one on missing document", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.UpdateOne(ctx, Teachers, primitive.NewObjectID(), SetField(models.FieldName, "x"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("update rejects unknown fields", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateOne(ctx, Courses, primitive.NewObjectID(), PullID("enrolledStudents", primitive.NewObjectID()))
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("update many by array membership", func(t *testing.T) {
		s := newStore(t)
		target := primitive.NewObjectID()
		other := primitive.NewObjectID()
		a := &models.Course{Title: "A", StudentIDs: []primitive.ObjectID{target, other}}
		b := &models.Course{Title: "B", StudentIDs: []primitive.ObjectID{other}}
		c := &models.Course{Title: "C", StudentIDs: []primitive.ObjectID{target}}
		for _, course := range []*models.Course{a, b, c} {
			require.NoError(t, s.InsertCourse(ctx, course))
		}

		n, err := s.UpdateMany(ctx, Courses, Filter{Field: models.FieldStudentIDs, Value: target}, PullID(models.FieldStudentIDs, target))
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		courses, err := s.ListCourses(ctx)
		require.NoError(t, err)
		require.Len(t, courses, 3)
		for _, course := range courses {
			assert.False(t, models.ContainsID(course.StudentIDs, target), course.Title)
		}
		gotB, err := s.FindCourse(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{other}, gotB.StudentIDs)
	})

	t.Run("update many by teacher reference", func(t *testing.T) {
		s := newStore(t)
		tid := primitive.NewObjectID()
		otherTid := primitive.NewObjectID()
		a := &models.Course{Title: "A", TeacherID: &tid}
		b := &models.Course{Title: "B", TeacherID: &otherTid}
		require.NoError(t, s.InsertCourse(ctx, a))
		require.NoError(t, s.InsertCourse(ctx, b))

		n, err := s.UpdateMany(ctx, Courses, Filter{Field: models.FieldTeacherID, Value: tid}, SetField(models.FieldTeacherID, nil))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		gotA, err := s.FindCourse(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, gotA.TeacherID)
		gotB, err := s.FindCourse(ctx, b.ID)
		require.NoError(t, err)
		require.NotNil(t, gotB.TeacherID)
		assert.Equal(t, otherTid, *gotB.TeacherID)
	})

	t.Run("update many counts matched documents", func(t *testing.T) {
		s := newStore(t)
		st := &models.Student{Name: "Alice"}
		require.NoError(t, s.InsertStudent(ctx, st))

		n, err := s.UpdateMany(ctx, Students, Filter{Field: models.FieldID, Value: st.ID}, SetField(models.FieldName, "Alice"))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = s.UpdateMany(ctx, Students, Filter{Field: models.FieldID, Value: st.ID}, PullID(models.FieldEnrolledCourses, primitive.NewObjectID()))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("ids lookup skips missing documents", func(t *testing.T) {
		s := newStore(t)
		a := &models.Student{Name: "A"}
		b := &models.Student{Name: "B"}
		require.NoError(t, s.InsertStudent(ctx, a))
		require.NoError(t, s.InsertStudent(ctx, b))

		got, err := s.StudentsByIDs(ctx, []primitive.ObjectID{a.ID, primitive.NewObjectID()})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)

		none, err := s.CoursesByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete one", func(t *testing.T) {
		s := newStore(t)
		st := &models.Student{Name: "A"}
		require.NoError(t, s.InsertStudent(ctx, st))

		ok, err := s.DeleteOne(ctx, Students, st.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.DeleteOne(ctx, Students, st.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		all, err := s.ListStudents(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("run in tx propagates errors", func(t *testing.T) {
		s := newStore(t)
		err := s.RunInTx(ctx, func(ctx context.Context) error {
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	names := []string{"c", "a", "b"}
	for _, n := range names {
		require.NoError(t, s.InsertTeacher(ctx, &models.Teacher{Name: n}))
	}

	got, err := s.ListTeachers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, n := range names {
		assert.Equal(t, n, got[i].Name)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	st := &models.Student{Name: "A"}
	require.NoError(t, s.InsertStudent(ctx, st))

	got, err := s.FindStudent(ctx, st.ID)
	require.NoError(t, err)
	got.Name = "changed"
	got.EnrolledCourses = append(got.EnrolledCourses, primitive.NewObjectID())

	again, err := s.FindStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
	assert.Empty(t, again.EnrolledCourses)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().ListCourses(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateValidate(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		update  Update
		wantErr bool
	}{
		{"student name", Students, SetField(models.FieldName, "x"), false},
		{"course teacher id", Courses, SetField(models.FieldTeacherID, primitive.NewObjectID()), false},
		{"course teacher null", Courses, SetField(models.FieldTeacherID, nil), false},
		{"course teacher as string", Courses, SetField(models.FieldTeacherID, "abc"), true},
		{"student title", Students, SetField(models.FieldTitle, "x"), true},
		{"name as id", Teachers, SetField(models.FieldName, primitive.NewObjectID()), true},
		{"int value", Students, SetField(models.FieldName, 3), true},
		{"push wrong array", Teachers, PushID(models.FieldStudentIDs, primitive.NewObjectID()), true},
		{"pull course students", Courses, PullID(models.FieldStudentIDs, primitive.NewObjectID()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.validate(tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilterValidate(t *testing.T) {
	id := primitive.NewObjectID()
	assert.NoError(t, Filter{Field: models.FieldStudentIDs, Value: id}.validate(Courses))
	assert.NoError(t, Filter{Field: models.FieldTeacherID, Value: id}.validate(Courses))
	assert.NoError(t, Filter{Field: models.FieldCoursesTaught, Value: id}.validate(Teachers))
	assert.ErrorIs(t, Filter{Field: models.FieldTeacherID, Value: id}.validate(Students), ErrUnknownField)
	assert.ErrorIs(t, Filter{Field: models.FieldName, Value: id}.validate(Teachers), ErrUnknownField)
}
