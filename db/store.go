package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"school-graphql-server-go/models"
)

// Kind names an entity collection.
type Kind string

const (
	Students Kind = "student"
	Teachers Kind = "teacher"
	Courses  Kind = "course"
)

// ErrUnknownField is returned when an Update or Filter names a field the
// entity kind does not have.
var ErrUnknownField = errors.New("unknown field")

// Update describes a single-document change. Set values are strings, a
// primitive.ObjectID, or nil (stored as null). Push appends an ID to an
// array field and Pull removes every occurrence of an ID from one.
type Update struct {
	Set  map[string]interface{}
	Push map[string]primitive.ObjectID
	Pull map[string]primitive.ObjectID
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Push) == 0 && len(u.Pull) == 0
}

// SetField returns an update setting one field.
func SetField(field string, value interface{}) Update {
	return Update{Set: map[string]interface{}{field: value}}
}

// PushID returns an update appending id to an array field.
func PushID(field string, id primitive.ObjectID) Update {
	return Update{Push: map[string]primitive.ObjectID{field: id}}
}

// PullID returns an update removing id from an array field.
func PullID(field string, id primitive.ObjectID) Update {
	return Update{Pull: map[string]primitive.ObjectID{field: id}}
}

// Filter matches documents whose Field equals Value or, for array fields,
// contains Value.
type Filter struct {
	Field string
	Value primitive.ObjectID
}

// Store is the entity store used by the service layer. Find methods return
// nil, nil when the document does not exist.
type Store interface {
	FindStudent(ctx context.Context, id primitive.ObjectID) (*models.Student, error)
	FindTeacher(ctx context.Context, id primitive.ObjectID) (*models.Teacher, error)
	FindCourse(ctx context.Context, id primitive.ObjectID) (*models.Course, error)

	ListStudents(ctx context.Context) ([]models.Student, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListCourses(ctx context.Context) ([]models.Course, error)

	StudentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Student, error)
	CoursesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error)

	// Insert methods assign a new ID when the document has none.
	InsertStudent(ctx context.Context, s *models.Student) error
	InsertTeacher(ctx context.Context, t *models.Teacher) error
	InsertCourse(ctx context.Context, c *models.Course) error

	// UpdateOne reports whether a document with the ID exists.
	UpdateOne(ctx context.Context, kind Kind, id primitive.ObjectID, u Update) (bool, error)
	// UpdateMany returns the number of documents matched by f, whether or
	// not u changed them.
	UpdateMany(ctx context.Context, kind Kind, f Filter, u Update) (int64, error)
	// DeleteOne reports whether a document was deleted.
	DeleteOne(ctx context.Context, kind Kind, id primitive.ObjectID) (bool, error)

	// RunInTx runs fn as one unit when the backend supports it, otherwise
	// sequentially. fn must use the context it is given.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// arrayField is the single reference array each kind carries.
var arrayField = map[Kind]string{
	Students: models.FieldEnrolledCourses,
	Teachers: models.FieldCoursesTaught,
	Courses:  models.FieldStudentIDs,
}

// scalarFields lists the settable scalar fields per kind.
var scalarFields = map[Kind][]string{
	Students: {models.FieldName, models.FieldEmail},
	Teachers: {models.FieldName, models.FieldEmail},
	Courses:  {models.FieldTitle, models.FieldDescription, models.FieldTeacherID},
}

func isScalarField(kind Kind, field string) bool {
	for _, f := range scalarFields[kind] {
		if f == field {
			return true
		}
	}
	return false
}

// validate checks that every field named by u exists on kind and that Set
// values have a supported type.
func (u Update) validate(kind Kind) error {
	for field, v := range u.Set {
		if !isScalarField(kind, field) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, kind, field)
		}
		switch v.(type) {
		case string:
			if field == models.FieldTeacherID {
				return fmt.Errorf("%s.%s must be an ID or nil", kind, field)
			}
		case primitive.ObjectID, nil:
			if field != models.FieldTeacherID {
				return fmt.Errorf("%s.%s must be a string", kind, field)
			}
		default:
			return fmt.Errorf("unsupported value %T for %s.%s", v, kind, field)
		}
	}
	for field := range u.Push {
		if arrayField[kind] != field {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, kind, field)
		}
	}
	for field := range u.Pull {
		if arrayField[kind] != field {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, kind, field)
		}
	}
	return nil
}

func (f Filter) validate(kind Kind) error {
	if f.Field == models.FieldID || f.Field == arrayField[kind] || (kind == Courses && f.Field == models.FieldTeacherID) {
		return nil
	}
	return fmt.Errorf("%w: cannot filter %s by %s", ErrUnknownField, kind, f.Field)
}

func unknownKind(k Kind) error {
	return fmt.Errorf("unknown entity kind %q", k)
}
