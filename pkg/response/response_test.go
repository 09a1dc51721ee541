package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestListTagsEmptyAndOK(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var none []string
	List(c, none, nil)
	body := decode(t, w)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StateEmpty, body["meta"].(map[string]interface{})["state"])
	assert.Equal(t, []interface{}{}, body["data"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	List(c, []string{"a"}, nil, map[string]interface{}{"semester": "Fall 2025"})
	body = decode(t, w)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, StateOK, meta["state"])
	assert.Equal(t, "Fall 2025", meta["semester"])
}

func TestErrorUsesStatusFromTypedError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.ErrAlreadySubmitted)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ALREADY_SUBMITTED", body["error"].(map[string]interface{})["code"])
	assert.Nil(t, body["data"])
}
