package db

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"school-graphql-server-go/models"
)

// MemoryStore keeps documents in process. It backs the memory:// scheme and
// the service and GraphQL tests. Listing order is insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	students table[models.Student]
	teachers table[models.Teacher]
	courses  table[models.Course]
}

type table[T any] struct {
	order []primitive.ObjectID
	rows  map[primitive.ObjectID]*T
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[primitive.ObjectID]*T)}
}

func (t *table[T]) insert(id primitive.ObjectID, row *T) {
	t.order = append(t.order, id)
	t.rows[id] = row
}

func (t *table[T]) delete(id primitive.ObjectID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	t.order = models.RemoveID(t.order, id)
	return true
}

func (t *table[T]) all(clone func(*T) T) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, clone(t.rows[id]))
	}
	return out
}

func (t *table[T]) byIDs(ids []primitive.ObjectID, clone func(*T) T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range t.order {
		if models.ContainsID(ids, id) {
			out = append(out, clone(t.rows[id]))
		}
	}
	return out
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: newTable[models.Student](),
		teachers: newTable[models.Teacher](),
		courses:  newTable[models.Course](),
	}
}

func cloneStudent(s *models.Student) models.Student {
	c := *s
	c.EnrolledCourses = models.CloneIDs(s.EnrolledCourses)
	return c
}

func cloneTeacher(t *models.Teacher) models.Teacher {
	c := *t
	c.CoursesTaught = models.CloneIDs(t.CoursesTaught)
	return c
}

func cloneCourse(c *models.Course) models.Course {
	out := *c
	if c.TeacherID != nil {
		tid := *c.TeacherID
		out.TeacherID = &tid
	}
	out.StudentIDs = models.CloneIDs(c.StudentIDs)
	return out
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (m *MemoryStore) FindStudent(ctx context.Context, id primitive.ObjectID) (*models.Student, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students.rows[id]
	if !ok {
		return nil, nil
	}
	c := cloneStudent(s)
	return &c, nil
}

func (m *MemoryStore) FindTeacher(ctx context.Context, id primitive.ObjectID) (*models.Teacher, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teachers.rows[id]
	if !ok {
		return nil, nil
	}
	c := cloneTeacher(t)
	return &c, nil
}

func (m *MemoryStore) FindCourse(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses.rows[id]
	if !ok {
		return nil, nil
	}
	out := cloneCourse(c)
	return &out, nil
}

func (m *MemoryStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.students.all(cloneStudent), nil
}

func (m *MemoryStore) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.teachers.all(cloneTeacher), nil
}

func (m *MemoryStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.courses.all(cloneCourse), nil
}

func (m *MemoryStore) StudentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Student, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.students.byIDs(ids, cloneStudent), nil
}

func (m *MemoryStore) CoursesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.courses.byIDs(ids, cloneCourse), nil
}

func (m *MemoryStore) InsertStudent(ctx context.Context, s *models.Student) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.EnrolledCourses == nil {
		s.EnrolledCourses = []primitive.ObjectID{}
	}
	row := cloneStudent(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students.insert(s.ID, &row)
	return nil
}

func (m *MemoryStore) InsertTeacher(ctx context.Context, t *models.Teacher) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.CoursesTaught == nil {
		t.CoursesTaught = []primitive.ObjectID{}
	}
	row := cloneTeacher(t)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers.insert(t.ID, &row)
	return nil
}

func (m *MemoryStore) InsertCourse(ctx context.Context, c *models.Course) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []primitive.ObjectID{}
	}
	row := cloneCourse(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses.insert(c.ID, &row)
	return nil
}

func (m *MemoryStore) UpdateOne(ctx context.Context, kind Kind, id primitive.ObjectID, u Update) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}
	if err := u.validate(kind); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case Students:
		s, ok := m.students.rows[id]
		if ok {
			applyStudent(s, u)
		}
		return ok, nil
	case Teachers:
		t, ok := m.teachers.rows[id]
		if ok {
			applyTeacher(t, u)
		}
		return ok, nil
	case Courses:
		c, ok := m.courses.rows[id]
		if ok {
			applyCourse(c, u)
		}
		return ok, nil
	}
	return false, unknownKind(kind)
}

func (m *MemoryStore) UpdateMany(ctx context.Context, kind Kind, f Filter, u Update) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	if err := u.validate(kind); err != nil {
		return 0, err
	}
	if err := f.validate(kind); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	switch kind {
	case Students:
		for _, id := range m.students.order {
			s := m.students.rows[id]
			if matchRefs(f, id, s.EnrolledCourses, nil) {
				applyStudent(s, u)
				n++
			}
		}
	case Teachers:
		for _, id := range m.teachers.order {
			t := m.teachers.rows[id]
			if matchRefs(f, id, t.CoursesTaught, nil) {
				applyTeacher(t, u)
				n++
			}
		}
	case Courses:
		for _, id := range m.courses.order {
			c := m.courses.rows[id]
			if matchRefs(f, id, c.StudentIDs, c.TeacherID) {
				applyCourse(c, u)
				n++
			}
		}
	default:
		return 0, unknownKind(kind)
	}
	return n, nil
}

func (m *MemoryStore) DeleteOne(ctx context.Context, kind Kind, id primitive.ObjectID) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case Students:
		return m.students.delete(id), nil
	case Teachers:
		return m.teachers.delete(id), nil
	case Courses:
		return m.courses.delete(id), nil
	}
	return false, unknownKind(kind)
}

// RunInTx runs fn directly; the memory backend has no multi-operation
// isolation.
func (m *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return checkCtx(ctx)
}

func (m *MemoryStore) Close(context.Context) error {
	return nil
}

// matchRefs applies a Filter to a document whose array field holds refs and
// whose optional scalar reference is ref. Filters have been validated, so a
// non-ID field is either the array field or the scalar reference.
func matchRefs(f Filter, id primitive.ObjectID, refs []primitive.ObjectID, ref *primitive.ObjectID) bool {
	switch f.Field {
	case models.FieldID:
		return id == f.Value
	case models.FieldTeacherID:
		return ref != nil && *ref == f.Value
	default:
		return models.ContainsID(refs, f.Value)
	}
}

func applyRefs(refs []primitive.ObjectID, field string, u Update) []primitive.ObjectID {
	if id, ok := u.Pull[field]; ok {
		refs = models.RemoveID(refs, id)
	}
	if id, ok := u.Push[field]; ok {
		refs = append(refs, id)
	}
	return refs
}

func applyStudent(s *models.Student, u Update) {
	for field, v := range u.Set {
		switch field {
		case models.FieldName:
			s.Name = v.(string)
		case models.FieldEmail:
			s.Email = v.(string)
		}
	}
	s.EnrolledCourses = applyRefs(s.EnrolledCourses, models.FieldEnrolledCourses, u)
}

func applyTeacher(t *models.Teacher, u Update) {
	for field, v := range u.Set {
		switch field {
		case models.FieldName:
			t.Name = v.(string)
		case models.FieldEmail:
			t.Email = v.(string)
		}
	}
	t.CoursesTaught = applyRefs(t.CoursesTaught, models.FieldCoursesTaught, u)
}

func applyCourse(c *models.Course, u Update) {
	for field, v := range u.Set {
		switch field {
		case models.FieldTitle:
			c.Title = v.(string)
		case models.FieldDescription:
			c.Description = v.(string)
		case models.FieldTeacherID:
			if id, ok := v.(primitive.ObjectID); ok {
				c.TeacherID = &id
			} else {
				c.TeacherID = nil
			}
		}
	}
	c.StudentIDs = applyRefs(c.StudentIDs, models.FieldStudentIDs, u)
}
