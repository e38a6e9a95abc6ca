package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"school-graphql-server-go/db"
	"school-graphql-server-go/graph"
	"school-graphql-server-go/models"
	"school-graphql-server-go/roster"
	"school-graphql-server-go/service"
)

type testServer struct {
	router *gin.Engine
	svc    *service.Service
	store  *db.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := db.NewMemoryStore()
	svc := service.New(store, zap.NewNop())
	schema, err := graph.NewSchema(svc)
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequestLogger(zap.NewNop()))
	NewAPIHandler(svc, schema, zap.NewNop()).RegisterRoutes(router)
	return &testServer{router: router, svc: svc, store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) fixture(t *testing.T) *models.Course {
	t.Helper()
	ctx := context.Background()
	teacher, err := s.svc.CreateTeacher(ctx, "Ada", "ada@example.com")
	require.NoError(t, err)
	course, err := s.svc.CreateCourse(ctx, "Go Backend", "desc", teacher.ID.Hex())
	require.NoError(t, err)
	return course
}

type graphqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

func postGraphQL(t *testing.T, s *testServer, path string, body interface{}) (*httptest.ResponseRecorder, graphqlResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)

	var resp graphqlResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestGraphQL_Post(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/graphql"} {
		t.Run(path, func(t *testing.T) {
			w, resp := postGraphQL(t, s, path, map[string]interface{}{
				"query":     `mutation($name: String!) { createStudent(name: $name, email: "a@example.com") { id name } }`,
				"variables": map[string]interface{}{"name": "Alice"},
			})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, resp.Errors)

			var student struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}
			require.NoError(t, json.Unmarshal(resp.Data["createStudent"], &student))
			assert.Equal(t, "Alice", student.Name)
			_, err := primitive.ObjectIDFromHex(student.ID)
			assert.NoError(t, err)
		})
	}
}

func TestGraphQL_Get(t *testing.T) {
	s := newTestServer(t)
	course := s.fixture(t)

	q := url.Values{}
	q.Set("query", `query($id: ID!) { course(id: $id) { title teacherId { name } } }`)
	q.Set("variables", `{"id":"`+course.ID.Hex()+`"}`)
	w := s.do(httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp graphqlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"title":"Go Backend","teacherId":{"name":"Ada"}}`, string(resp.Data["course"]))
}

func TestGraphQL_FieldErrorsUseStatusOK(t *testing.T) {
	s := newTestServer(t)

	w, resp := postGraphQL(t, s, "/graphql", map[string]interface{}{
		"query": `{ student(id: "nope") { id } }`,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "invalid_id", resp.Errors[0].Extensions["code"])
}

func TestGraphQL_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"malformed body", httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString("{"))},
		{"missing query", httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{"variables":{}}`))},
		{"bad variables", httptest.NewRequest(http.MethodGet, "/graphql?query=%7Bstudents%7Bid%7D%7D&variables=%5B", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Header.Set("Content-Type", "application/json")
			w := s.do(tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"bad_request"`)
		})
	}
}

func TestPing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Pong!"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = s.do(req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func uploadRequest(t *testing.T, rows [][]interface{}, courseID string) *http.Request {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "students.xlsx")
	require.NoError(t, err)
	require.NoError(t, f.Write(part))
	if courseID != "" {
		require.NoError(t, mw.WriteField("courseId", courseID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/students", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportStudents(t *testing.T) {
	s := newTestServer(t)
	course := s.fixture(t)

	w := s.do(uploadRequest(t, [][]interface{}{
		{"Name", "Email"},
		{"Alice", "alice@example.com"},
		{"Bob", "bob@example.com"},
		{"NoEmail"},
	}, course.ID.Hex()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		ImportedCount int    `json:"importedCount"`
		SkippedCount  int    `json:"skippedCount"`
		CourseID      string `json:"courseId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.ImportedCount)
	assert.Equal(t, 1, body.SkippedCount)
	assert.Equal(t, course.ID.Hex(), body.CourseID)

	stored, err := s.store.FindCourse(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StudentIDs, 2)
}

func TestImportStudents_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/api/import/students", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(uploadRequest(t, [][]interface{}{{"Name", "Email"}, {"Alice", "a@example.com"}},
		primitive.NewObjectID().Hex()))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"not_found"`)

	w = s.do(uploadRequest(t, [][]interface{}{{"Name", "Email"}}, "bad-id"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"invalid_id"`)
}

func TestCourseRoster(t *testing.T) {
	s := newTestServer(t)
	course := s.fixture(t)
	ctx := context.Background()

	st, err := s.svc.CreateStudent(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	_, err = s.svc.EnrollStudentInCourse(ctx, st.ID.Hex(), course.ID.Hex())
	require.NoError(t, err)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/courses/"+course.ID.Hex()+"/roster", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, roster.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Go_Backend_roster.xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{st.ID.Hex(), "Alice", "alice@example.com"}, rows[1])
}

func TestCourseRoster_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/courses/"+primitive.NewObjectID().Hex()+"/roster", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/courses/xyz/roster", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraphQL_GetRejectsWrites(t *testing.T) {
	s := newTestServer(t)

	for _, query := range []string{
		`mutation { createStudent(name: "Eve", email: "e@example.com") { id } }`,
		`query Q { students { id } } mutation M { createStudent(name: "Eve", email: "e@example.com") { id } }`,
	} {
		q := url.Values{}
		q.Set("query", query)
		w := s.do(httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
		assert.Contains(t, w.Body.String(), `"code":"method_not_allowed"`)
	}

	students, err := s.store.ListStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestHasWriteOperation(t *testing.T) {
	tests := []struct {
		doc  string
		want bool
	}{
		{`{ students { id } }`, false},
		{`query mutationFree { students { id } }`, false},
		{`query($m: ID!) { student(id: $m) { id } }`, false},
		{`{ student(id: "mutation { x }") { id } }`, false},
		{`{ student(id: "a\"mutation") { id } }`, false},
		{"# mutation\n{ students { id } }", false},
		{`{ student(id: """ mutation """) { id } }`, false},
		{`mutation { deleteStudent(id: "x") }`, true},
		{`  mutation Named($id: ID!) { deleteStudent(id: $id) }`, true},
		{`subscription { students { id } }`, true},
		{`{ students { id } } mutation { deleteStudent(id: "x") }`, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hasWriteOperation(tt.doc), tt.doc)
	}
}

func TestImportStudents_TooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := db.NewMemoryStore()
	svc := service.New(store, zap.NewNop())
	schema, err := graph.NewSchema(svc)
	require.NoError(t, err)

	h := NewAPIHandler(svc, schema, zap.NewNop())
	h.MaxUploadBytes = 512
	router := gin.New()
	h.RegisterRoutes(router)
	s := &testServer{router: router, svc: svc, store: store}

	req := uploadRequest(t, [][]interface{}{{"Name", "Email"}, {"Alice", "alice@example.com"}}, "")
	require.Greater(t, req.ContentLength, int64(512))
	w := s.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"payload_too_large"`)

	students, err := store.ListStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
}
