package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/middleware"
	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// claimsOrAbort writes 401 when the request carries no claims.
func claimsOrAbort(c *gin.Context) (*models.JWTClaims, bool) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func pageQuery(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", c.DefaultQuery("limit", "20")))
	if err != nil {
		size = 20
	}
	return page, size
}

// timeQuery accepts RFC3339 or a bare date.
func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a date (YYYY-MM-DD) or RFC3339 timestamp")
}

func stringQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}

func formUpload(c *gin.Context, field string) (service.FileUpload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return service.FileUpload{}, func() {}, appErrors.Clone(appErrors.ErrValidation, field+" is required")
	}
	file, err := header.Open()
	if err != nil {
		return service.FileUpload{}, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload")
	}
	upload := service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}
	return upload, func() { _ = file.Close() }, nil
}

func formString(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok && v != "" {
		return &v
	}
	return nil
}
