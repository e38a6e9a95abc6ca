package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document field names. These are the names stored in every backend and
// the names used by Update and Filter values in the db package.
const (
	FieldID              = "_id"
	FieldName            = "name"
	FieldEmail           = "email"
	FieldEnrolledCourses = "enrolledCourses"
	FieldCoursesTaught   = "coursesTaught"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldTeacherID       = "teacherId"
	FieldStudentIDs      = "studentIds"
)

// Student represents a student
type Student struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	Email           string               `bson:"email" json:"email"`
	EnrolledCourses []primitive.ObjectID `bson:"enrolledCourses" json:"enrolledCourses"` // Course IDs
}

// Teacher represents a teacher
type Teacher struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Email         string               `bson:"email" json:"email"`
	CoursesTaught []primitive.ObjectID `bson:"coursesTaught" json:"coursesTaught"` // Course IDs
}

// Course represents a course. TeacherID is nil when no teacher is assigned.
type Course struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	TeacherID   *primitive.ObjectID  `bson:"teacherId" json:"teacherId"`
	StudentIDs  []primitive.ObjectID `bson:"studentIds" json:"studentIds"` // Student IDs
}

// ParseID converts the hex form of an identifier.
func ParseID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}

// ContainsID reports whether id is present in ids.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// RemoveID returns ids without any occurrence of id.
func RemoveID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// CloneIDs copies an ID slice, never returning nil.
func CloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}
