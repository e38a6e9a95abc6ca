package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"
	"school-graphql-server-go/apperror"
	"school-graphql-server-go/roster"
	"school-graphql-server-go/service"
)

const pingPath = "/api/ping"

// DefaultMaxUploadBytes caps student import uploads unless overridden.
const DefaultMaxUploadBytes int64 = 10 << 20

// APIHandler holds the dependencies for the HTTP handlers
type APIHandler struct {
	Service        *service.Service
	Schema         *graphql.Schema
	Log            *zap.Logger
	MaxUploadBytes int64
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(svc *service.Service, schema *graphql.Schema, log *zap.Logger) *APIHandler {
	return &APIHandler{
		Service:        svc,
		Schema:         schema,
		Log:            log,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// RegisterRoutes mounts the GraphQL endpoint and the REST helpers.
func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/", h.GraphQL)
	router.POST("/graphql", h.GraphQL)
	router.GET("/graphql", h.GraphQL)

	api := router.Group("/api")
	{
		api.GET("/ping", h.Ping)
		api.POST("/import/students", h.ImportStudents)
		api.GET("/courses/:courseId/roster", h.CourseRoster)
	}
}

func (h *APIHandler) logger(c *gin.Context) *zap.Logger {
	return h.Log.With(zap.String("request_id", RequestID(c)))
}

// fail writes an application error response. Errors that are not
// application errors are logged and reported as internal.
func (h *APIHandler) fail(c *gin.Context, msg string, err error) {
	status, body := apperror.ToHTTPError(err)
	if status >= http.StatusInternalServerError {
		h.logger(c).Error(msg, zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// GraphQL handles POST / and POST|GET /graphql. Field errors are reported
// inside the response body with status 200. GET only serves queries.
func (h *APIHandler) GraphQL(c *gin.Context) {
	var req graphqlRequest
	if c.Request.Method == http.MethodGet {
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if vars := c.Query("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				h.fail(c, "invalid variables", apperror.ErrBadRequest.WithMessage("variables must be a JSON object"))
				return
			}
		}
		if hasWriteOperation(req.Query) {
			c.Header("Allow", http.MethodPost)
			h.fail(c, "write over GET", apperror.ErrMethodNotAllowed.WithMessage("mutations and subscriptions must be sent with POST"))
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "invalid body", apperror.ErrBadRequest.WithMessage("Invalid request body: "+err.Error()))
		return
	}

	if req.Query == "" {
		h.fail(c, "missing query", apperror.ErrBadRequest.WithMessage("query is required"))
		return
	}

	resp := h.Schema.Exec(c.Request.Context(), req.Query, req.OperationName, req.Variables)
	if len(resp.Errors) > 0 {
		h.logger(c).Debug("graphql errors", zap.Int("count", len(resp.Errors)), zap.String("operation", req.OperationName))
	}
	c.JSON(http.StatusOK, resp)
}

// Ping handles GET /api/ping and checks the store connection.
func (h *APIHandler) Ping(c *gin.Context) {
	if err := h.Service.Store().Ping(c.Request.Context()); err != nil {
		h.logger(c).Error("store ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}

// ImportStudents handles POST /api/import/students. The multipart form
// carries the workbook under "file" and an optional "courseId".
func (h *APIHandler) ImportStudents(c *gin.Context) {
	if c.Request.ContentLength > h.MaxUploadBytes {
		h.fail(c, "upload too large", tooLarge(h.MaxUploadBytes))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, "upload too large", tooLarge(h.MaxUploadBytes))
			return
		}
		h.fail(c, "missing file", apperror.ErrBadRequest.WithMessage("Error retrieving uploaded file: "+err.Error()))
		return
	}
	defer file.Close()
	courseID := c.PostForm("courseId")

	log := h.logger(c).With(zap.String("filename", header.Filename))
	log.Info("received student import", zap.String("course_id", courseID))

	rows, skipped, err := roster.ReadStudents(file)
	if err != nil {
		h.fail(c, "unreadable workbook", apperror.ErrBadRequest.WithMessage(err.Error()).WithInternal(err))
		return
	}

	imported, err := h.Service.ImportStudents(c.Request.Context(), rows, courseID)
	if err != nil {
		h.fail(c, "student import failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": imported,
		"skippedCount":  skipped,
		"courseId":      courseID,
	})
}

func tooLarge(limit int64) *apperror.Error {
	return apperror.ErrPayloadTooLarge.WithMessage(fmt.Sprintf("upload exceeds %d bytes", limit))
}

// CourseRoster handles GET /api/courses/:courseId/roster and returns the
// enrolled students as a workbook.
func (h *APIHandler) CourseRoster(c *gin.Context) {
	course, students, err := h.Service.CourseRoster(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		h.fail(c, "roster lookup failed", err)
		return
	}

	var buf bytes.Buffer
	if err := roster.WriteCourseRoster(&buf, students); err != nil {
		h.fail(c, "roster export failed", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, roster.Filename(course)))
	c.Data(http.StatusOK, roster.ContentType, buf.Bytes())
}
