package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"school-graphql-server-go/models"
)

// MongoStore handles operations with the MongoDB database. The client and
// its collections are shared by every request.
type MongoStore struct {
	Client   *mongo.Client
	Database *mongo.Database

	students *mongo.Collection
	teachers *mongo.Collection
	courses  *mongo.Collection

	transactions bool
	log          *zap.Logger
}

// NewMongoStore creates a MongoStore over the named database. When
// transactions is set, RunInTx opens a session transaction, which requires a
// replica set or sharded cluster.
func NewMongoStore(client *mongo.Client, database string, transactions bool, log *zap.Logger) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		Client:       client,
		Database:     db,
		students:     db.Collection(string(Students)),
		teachers:     db.Collection(string(Teachers)),
		courses:      db.Collection(string(Courses)),
		transactions: transactions,
		log:          log,
	}
}

// ConnectMongo creates a client for uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func (s *MongoStore) collection(kind Kind) (*mongo.Collection, error) {
	switch kind {
	case Students:
		return s.students, nil
	case Teachers:
		return s.teachers, nil
	case Courses:
		return s.courses, nil
	}
	return nil, unknownKind(kind)
}

// findOne decodes the document with the given ID into out. It reports false
// when no document matches.
func findOne(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, out interface{}) (bool, error) {
	err := coll.FindOne(ctx, bson.M{models.FieldID: id}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find %s %s: %w", coll.Name(), id.Hex(), err)
	}
	return true, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]T, error) {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func idsFilter(ids []primitive.ObjectID) bson.M {
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return bson.M{models.FieldID: bson.M{"$in": ids}}
}

func (s *MongoStore) FindStudent(ctx context.Context, id primitive.ObjectID) (*models.Student, error) {
	var out models.Student
	ok, err := findOne(ctx, s.students, id, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore) FindTeacher(ctx context.Context, id primitive.ObjectID) (*models.Teacher, error) {
	var out models.Teacher
	ok, err := findOne(ctx, s.teachers, id, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore) FindCourse(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	var out models.Course
	ok, err := findOne(ctx, s.courses, id, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	return findAll[models.Student](ctx, s.students, bson.M{})
}

func (s *MongoStore) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return findAll[models.Teacher](ctx, s.teachers, bson.M{})
}

func (s *MongoStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	return findAll[models.Course](ctx, s.courses, bson.M{})
}

func (s *MongoStore) StudentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Student, error) {
	return findAll[models.Student](ctx, s.students, idsFilter(ids))
}

func (s *MongoStore) CoursesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	return findAll[models.Course](ctx, s.courses, idsFilter(ids))
}

func (s *MongoStore) InsertStudent(ctx context.Context, st *models.Student) error {
	if st.ID.IsZero() {
		st.ID = primitive.NewObjectID()
	}
	if st.EnrolledCourses == nil {
		st.EnrolledCourses = []primitive.ObjectID{}
	}
	if _, err := s.students.InsertOne(ctx, st); err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertTeacher(ctx context.Context, t *models.Teacher) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.CoursesTaught == nil {
		t.CoursesTaught = []primitive.ObjectID{}
	}
	if _, err := s.teachers.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("failed to insert teacher: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertCourse(ctx context.Context, c *models.Course) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []primitive.ObjectID{}
	}
	if _, err := s.courses.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

// updateDocument translates an Update into Mongo update operators.
func updateDocument(u Update) bson.M {
	doc := bson.M{}
	if len(u.Set) > 0 {
		set := bson.M{}
		for k, v := range u.Set {
			set[k] = v
		}
		doc["$set"] = set
	}
	if len(u.Push) > 0 {
		push := bson.M{}
		for k, v := range u.Push {
			push[k] = v
		}
		doc["$push"] = push
	}
	if len(u.Pull) > 0 {
		pull := bson.M{}
		for k, v := range u.Pull {
			pull[k] = v
		}
		doc["$pull"] = pull
	}
	return doc
}

// filterDocument translates a Filter. Mongo matches a scalar against an
// array field by membership, which is the contains semantics Filter needs.
func filterDocument(f Filter) bson.M {
	return bson.M{f.Field: f.Value}
}

func (s *MongoStore) UpdateOne(ctx context.Context, kind Kind, id primitive.ObjectID, u Update) (bool, error) {
	if err := u.validate(kind); err != nil {
		return false, err
	}
	coll, err := s.collection(kind)
	if err != nil {
		return false, err
	}
	if u.IsEmpty() {
		n, err := coll.CountDocuments(ctx, bson.M{models.FieldID: id})
		if err != nil {
			return false, fmt.Errorf("failed to count %s: %w", kind, err)
		}
		return n > 0, nil
	}
	res, err := coll.UpdateOne(ctx, bson.M{models.FieldID: id}, updateDocument(u))
	if err != nil {
		return false, fmt.Errorf("failed to update %s %s: %w", kind, id.Hex(), err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) UpdateMany(ctx context.Context, kind Kind, f Filter, u Update) (int64, error) {
	if err := u.validate(kind); err != nil {
		return 0, err
	}
	if err := f.validate(kind); err != nil {
		return 0, err
	}
	coll, err := s.collection(kind)
	if err != nil {
		return 0, err
	}
	if u.IsEmpty() {
		return 0, nil
	}
	res, err := coll.UpdateMany(ctx, filterDocument(f), updateDocument(u))
	if err != nil {
		return 0, fmt.Errorf("failed to update %s by %s: %w", kind, f.Field, err)
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) DeleteOne(ctx context.Context, kind Kind, id primitive.ObjectID) (bool, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return false, err
	}
	res, err := coll.DeleteOne(ctx, bson.M{models.FieldID: id})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", kind, id.Hex(), err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	session, err := s.Client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		s.log.Debug("transaction aborted", zap.Error(err))
	}
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
