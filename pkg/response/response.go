package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Mutation is the envelope of write endpoints
type Mutation struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorData `json:"error,omitempty"`
}

// Page is the envelope of list endpoints
type Page struct {
	Data any `json:"data"`
	Meta any `json:"meta"`
}

type ErrorData struct {
	Code    string            `json:"code"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON writes v as is
func JSON(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}

// Empty writes a 200 with no body
func Empty(c *gin.Context) {
	c.Status(http.StatusOK)
}

func List(c *gin.Context, data, meta any) {
	c.JSON(http.StatusOK, Page{Data: data, Meta: meta})
}

func Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Mutation{Success: true, Message: message})
}

func Created(c *gin.Context, message string) {
	c.JSON(http.StatusCreated, Mutation{Success: true, Message: message})
}

func Error(c *gin.Context, status int, code, message string, details string) {
	c.JSON(status, Mutation{
		Success: false,
		Message: message,
		Error:   &ErrorData{Code: code, Details: details},
	})
}

func ValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, Mutation{
		Success: false,
		Message: "Validation failed",
		Error:   &ErrorData{Code: "VALIDATION_ERROR", Fields: fields},
	})
}

func InternalError(c *gin.Context, err error) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", err.Error())
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message, "")
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message, "")
}
