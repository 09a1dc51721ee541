package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/response"
)

// MaterialHandler serves study materials.
type MaterialHandler struct {
	materials *service.MaterialService
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// List godoc
// @Summary List study materials
// @Tags Materials
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	items, err := h.materials.List(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// Upload godoc
// @Summary Upload study material
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param file formData file true "Material file"
// @Param title formData string false "Title, defaults to the filename"
// @Param description formData string false "Description"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/materials [post]
func (h *MaterialHandler) Upload(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	upload, closeFile, err := formUpload(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	req := service.UploadMaterialRequest{Title: c.PostForm("title"), Description: formString(c, "description")}
	item, err := h.materials.Upload(c.Request.Context(), c.Param("id"), req, upload, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Delete study material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	claims, ok := claimsOrAbort(c)
	if !ok {
		return
	}
	if err := h.materials.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
