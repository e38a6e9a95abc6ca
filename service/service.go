package service

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"school-graphql-server-go/apperror"
	"school-graphql-server-go/db"
	"school-graphql-server-go/models"
)

// Service implements the school operations over an entity store: reads,
// creation, partial updates, enrollment, and cascading deletes that keep
// the cross references between students, teachers, and courses consistent.
type Service struct {
	store db.Store
	log   *zap.Logger
}

// New creates a Service
func New(store db.Store, log *zap.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
	}
}

// Store returns the underlying entity store.
func (s *Service) Store() db.Store {
	return s.store
}

// parseID converts a client supplied ID, reporting an invalid_id error.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidID(id, err)
	}
	return oid, nil
}

// PersonPatch holds the optional fields of updateStudent and updateTeacher.
// Nil and empty values are both treated as not provided.
type PersonPatch struct {
	Name  *string
	Email *string
}

// CoursePatch holds the optional fields of updateCourse.
type CoursePatch struct {
	Title       *string
	Description *string
	TeacherID   *string
}

func provided(v *string) bool {
	return v != nil && *v != ""
}

func (p PersonPatch) update() db.Update {
	u := db.Update{Set: map[string]interface{}{}}
	if provided(p.Name) {
		u.Set[models.FieldName] = *p.Name
	}
	if provided(p.Email) {
		u.Set[models.FieldEmail] = *p.Email
	}
	return u
}
