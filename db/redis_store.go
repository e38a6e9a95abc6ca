package db

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"school-graphql-server-go/models"
)

// Key layout, per kind ("student", "teacher", "course"):
//
//	{kind}s                Set: all IDs of that kind
//	{kind}:{id}            Hash: scalar fields
//	{kind}:{id}:{array}    List: reference array (enrolledCourses, coursesTaught, studentIds)
//
// A null course teacherId is stored as an empty string.

// RedisStore handles operations with the Redis database
type RedisStore struct {
	Client *redis.Client
	log    *zap.Logger
}

// NewRedisStore creates a new RedisStore instance
func NewRedisStore(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{
		Client: client,
		log:    log,
	}
}

// ConnectRedis creates and tests a Redis client connection from a
// redis:// or rediss:// URL.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return rdb, nil
}

func idsKey(kind Kind) string {
	return string(kind) + "s"
}

func docKey(kind Kind, id primitive.ObjectID) string {
	return string(kind) + ":" + id.Hex()
}

func refsKey(kind Kind, id primitive.ObjectID) string {
	return docKey(kind, id) + ":" + arrayField[kind]
}

// record is the raw form of a stored document.
type record struct {
	id     primitive.ObjectID
	fields map[string]string
	refs   []primitive.ObjectID
}

// load reads one document. A hash whose ID is not in the kind's ID set is
// treated as absent.
func (s *RedisStore) load(ctx context.Context, kind Kind, id primitive.ObjectID) (*record, error) {
	member, err := s.Client.SIsMember(ctx, idsKey(kind), id.Hex()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check %s %s in Redis: %w", kind, id.Hex(), err)
	}
	if !member {
		return nil, nil
	}
	fields, err := s.Client.HGetAll(ctx, docKey(kind, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s from Redis: %w", kind, id.Hex(), err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	raw, err := s.Client.LRange(ctx, refsKey(kind, id), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get %s of %s %s: %w", arrayField[kind], kind, id.Hex(), err)
	}
	refs, err := parseIDs(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt %s of %s %s: %w", arrayField[kind], kind, id.Hex(), err)
	}
	return &record{id: id, fields: fields, refs: refs}, nil
}

func parseIDs(raw []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, r := range raw {
		id, err := primitive.ObjectIDFromHex(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// members returns every ID of kind, ordered by ID, which follows creation
// time for generated IDs.
func (s *RedisStore) members(ctx context.Context, kind Kind) ([]primitive.ObjectID, error) {
	raw, err := s.Client.SMembers(ctx, idsKey(kind)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get %s IDs from Redis: %w", kind, err)
	}
	sort.Strings(raw)
	return parseIDs(raw)
}

func (s *RedisStore) loadMany(ctx context.Context, kind Kind, ids []primitive.ObjectID) ([]*record, error) {
	out := make([]*record, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, err := s.load(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *record) student() models.Student {
	return models.Student{
		ID:              r.id,
		Name:            r.fields[models.FieldName],
		Email:           r.fields[models.FieldEmail],
		EnrolledCourses: r.refs,
	}
}

func (r *record) teacher() models.Teacher {
	return models.Teacher{
		ID:            r.id,
		Name:          r.fields[models.FieldName],
		Email:         r.fields[models.FieldEmail],
		CoursesTaught: r.refs,
	}
}

func (r *record) course() (models.Course, error) {
	c := models.Course{
		ID:          r.id,
		Title:       r.fields[models.FieldTitle],
		Description: r.fields[models.FieldDescription],
		StudentIDs:  r.refs,
	}
	if raw := r.fields[models.FieldTeacherID]; raw != "" {
		tid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return models.Course{}, fmt.Errorf("corrupt teacherId of course %s: %w", r.id.Hex(), err)
		}
		c.TeacherID = &tid
	}
	return c, nil
}

func (s *RedisStore) FindStudent(ctx context.Context, id primitive.ObjectID) (*models.Student, error) {
	rec, err := s.load(ctx, Students, id)
	if err != nil || rec == nil {
		return nil, err
	}
	st := rec.student()
	return &st, nil
}

func (s *RedisStore) FindTeacher(ctx context.Context, id primitive.ObjectID) (*models.Teacher, error) {
	rec, err := s.load(ctx, Teachers, id)
	if err != nil || rec == nil {
		return nil, err
	}
	t := rec.teacher()
	return &t, nil
}

func (s *RedisStore) FindCourse(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	rec, err := s.load(ctx, Courses, id)
	if err != nil || rec == nil {
		return nil, err
	}
	c, err := rec.course()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	ids, err := s.members(ctx, Students)
	if err != nil {
		return nil, err
	}
	return s.StudentsByIDs(ctx, ids)
}

func (s *RedisStore) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	ids, err := s.members(ctx, Teachers)
	if err != nil {
		return nil, err
	}
	recs, err := s.loadMany(ctx, Teachers, ids)
	if err != nil {
		return nil, err
	}
	teachers := make([]models.Teacher, 0, len(recs))
	for _, rec := range recs {
		teachers = append(teachers, rec.teacher())
	}
	return teachers, nil
}

func (s *RedisStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	ids, err := s.members(ctx, Courses)
	if err != nil {
		return nil, err
	}
	return s.CoursesByIDs(ctx, ids)
}

func (s *RedisStore) StudentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Student, error) {
	recs, err := s.loadMany(ctx, Students, ids)
	if err != nil {
		return nil, err
	}
	students := make([]models.Student, 0, len(recs))
	for _, rec := range recs {
		students = append(students, rec.student())
	}
	return students, nil
}

func (s *RedisStore) CoursesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	recs, err := s.loadMany(ctx, Courses, ids)
	if err != nil {
		return nil, err
	}
	courses := make([]models.Course, 0, len(recs))
	for _, rec := range recs {
		c, err := rec.course()
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// insert writes a new document and registers its ID in one MULTI/EXEC.
func (s *RedisStore) insert(ctx context.Context, kind Kind, id primitive.ObjectID, fields map[string]interface{}, refs []primitive.ObjectID) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, idsKey(kind), id.Hex())
		pipe.HSet(ctx, docKey(kind, id), fields)
		for _, ref := range refs {
			pipe.RPush(ctx, refsKey(kind, id), ref.Hex())
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to insert document", zap.String("kind", string(kind)), zap.String("id", id.Hex()), zap.Error(err))
		return fmt.Errorf("failed to add %s to Redis: %w", kind, err)
	}
	return nil
}

func (s *RedisStore) InsertStudent(ctx context.Context, st *models.Student) error {
	if st.ID.IsZero() {
		st.ID = primitive.NewObjectID()
	}
	if st.EnrolledCourses == nil {
		st.EnrolledCourses = []primitive.ObjectID{}
	}
	return s.insert(ctx, Students, st.ID, map[string]interface{}{
		models.FieldName:  st.Name,
		models.FieldEmail: st.Email,
	}, st.EnrolledCourses)
}

func (s *RedisStore) InsertTeacher(ctx context.Context, t *models.Teacher) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.CoursesTaught == nil {
		t.CoursesTaught = []primitive.ObjectID{}
	}
	return s.insert(ctx, Teachers, t.ID, map[string]interface{}{
		models.FieldName:  t.Name,
		models.FieldEmail: t.Email,
	}, t.CoursesTaught)
}

func (s *RedisStore) InsertCourse(ctx context.Context, c *models.Course) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []primitive.ObjectID{}
	}
	teacherID := ""
	if c.TeacherID != nil {
		teacherID = c.TeacherID.Hex()
	}
	return s.insert(ctx, Courses, c.ID, map[string]interface{}{
		models.FieldTitle:       c.Title,
		models.FieldDescription: c.Description,
		models.FieldTeacherID:   teacherID,
	}, c.StudentIDs)
}

func encodeValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case primitive.ObjectID:
		return val.Hex()
	default:
		return ""
	}
}

// apply queues the commands for u against one document.
func apply(ctx context.Context, pipe redis.Pipeliner, kind Kind, id primitive.ObjectID, u Update) {
	if len(u.Set) > 0 {
		fields := make(map[string]interface{}, len(u.Set))
		for k, v := range u.Set {
			fields[k] = encodeValue(v)
		}
		pipe.HSet(ctx, docKey(kind, id), fields)
	}
	for _, ref := range u.Pull {
		pipe.LRem(ctx, refsKey(kind, id), 0, ref.Hex())
	}
	for _, ref := range u.Push {
		pipe.RPush(ctx, refsKey(kind, id), ref.Hex())
	}
}

// maxWatchRetries bounds the optimistic retries of a write whose watched ID
// set changed before EXEC.
const maxWatchRetries = 10

// watch runs fn with the kind's ID set under WATCH, retrying when another
// client adds or removes an ID of that kind before fn's MULTI/EXEC.
func (s *RedisStore) watch(ctx context.Context, kind Kind, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := s.Client.Watch(ctx, fn, idsKey(kind))
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

func (s *RedisStore) UpdateOne(ctx context.Context, kind Kind, id primitive.ObjectID, u Update) (bool, error) {
	if err := u.validate(kind); err != nil {
		return false, err
	}
	if _, ok := arrayField[kind]; !ok {
		return false, unknownKind(kind)
	}
	var exists bool
	err := s.watch(ctx, kind, func(tx *redis.Tx) error {
		ok, err := tx.SIsMember(ctx, idsKey(kind), id.Hex()).Result()
		if err != nil {
			return err
		}
		exists = ok
		if !ok || u.IsEmpty() {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			apply(ctx, pipe, kind, id, u)
			return nil
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to update %s %s in Redis: %w", kind, id.Hex(), err)
	}
	return exists, nil
}

func (s *RedisStore) matches(ctx context.Context, kind Kind, id primitive.ObjectID, f Filter) (bool, error) {
	switch f.Field {
	case models.FieldID:
		return id == f.Value, nil
	case models.FieldTeacherID:
		raw, err := s.Client.HGet(ctx, docKey(kind, id), f.Field).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, nil
			}
			return false, fmt.Errorf("failed to read %s of %s %s: %w", f.Field, kind, id.Hex(), err)
		}
		return raw == f.Value.Hex(), nil
	default:
		raw, err := s.Client.LRange(ctx, refsKey(kind, id), 0, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return false, fmt.Errorf("failed to read %s of %s %s: %w", f.Field, kind, id.Hex(), err)
		}
		for _, r := range raw {
			if r == f.Value.Hex() {
				return true, nil
			}
		}
		return false, nil
	}
}

func (s *RedisStore) UpdateMany(ctx context.Context, kind Kind, f Filter, u Update) (int64, error) {
	if err := u.validate(kind); err != nil {
		return 0, err
	}
	if err := f.validate(kind); err != nil {
		return 0, err
	}
	if u.IsEmpty() {
		return 0, nil
	}
	var matched int64
	err := s.watch(ctx, kind, func(tx *redis.Tx) error {
		ids, err := s.members(ctx, kind)
		if err != nil {
			return err
		}
		var targets []primitive.ObjectID
		for _, id := range ids {
			ok, err := s.matches(ctx, kind, id, f)
			if err != nil {
				return err
			}
			if ok {
				targets = append(targets, id)
			}
		}
		matched = int64(len(targets))
		if len(targets) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range targets {
				apply(ctx, pipe, kind, id, u)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update %s by %s in Redis: %w", kind, f.Field, err)
	}
	return matched, nil
}

func (s *RedisStore) DeleteOne(ctx context.Context, kind Kind, id primitive.ObjectID) (bool, error) {
	if _, ok := arrayField[kind]; !ok {
		return false, unknownKind(kind)
	}
	var removed *redis.IntCmd
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.SRem(ctx, idsKey(kind), id.Hex())
		pipe.Del(ctx, docKey(kind, id), refsKey(kind, id))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s from Redis: %w", kind, id.Hex(), err)
	}
	return removed.Val() > 0, nil
}

// RunInTx runs fn sequentially. Each store call is a MULTI/EXEC on its own;
// reads inside fn cannot be grouped with the writes that depend on them.
func (s *RedisStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close(context.Context) error {
	return s.Client.Close()
}
