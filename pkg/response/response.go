package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

// Result states carried in meta.state for collection responses.
const (
	StateOK    = "ok"
	StateEmpty = "empty"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// List sends a collection tagged with meta.state so clients can tell an empty
// result apart from a failed request. Nil slices are rendered as [].
func List(c *gin.Context, items interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	merged := map[string]interface{}{}
	if len(meta) > 0 {
		for k, v := range meta[0] {
			merged[k] = v
		}
	}
	state := StateOK
	if isEmpty(items) {
		state = StateEmpty
		items = []interface{}{}
	}
	merged["state"] = state
	JSON(c, http.StatusOK, items, pagination, merged)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func isEmpty(items interface{}) bool {
	if items == nil {
		return true
	}
	v := reflect.ValueOf(items)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() == 0
	case reflect.Ptr:
		return v.IsNil()
	}
	return false
}
