package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/24rabbit/material-service/middleware"
	"github.com/24rabbit/material-service/pkg/metrics"
	"github.com/24rabbit/material-service/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type MaterialHandler struct {
	svc    service.MaterialService
	logger *logrus.Logger
}

func NewMaterialHandler(svc service.MaterialService, logger *logrus.Logger) *MaterialHandler {
	return &MaterialHandler{
		svc:    svc,
		logger: logger,
	}
}

type stageUploadRequest struct {
	Filename       string `json:"filename"`
	ContentType    string `json:"contentType"`
	FileSize       int64  `json:"fileSize"`
	BrandProfileID string `json:"brandProfileId,omitempty"`
}

type confirmUploadRequest struct {
	MaterialID string `json:"materialId"`
}

// StageUpload issues an upload credential and records a pending material.
// POST /api/materials/uploads
func (h *MaterialHandler) StageUpload(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req stageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var brandProfileID *uuid.UUID
	if req.BrandProfileID != "" {
		id, err := uuid.Parse(req.BrandProfileID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid brand profile id"})
			return
		}
		brandProfileID = &id
	}

	result, err := h.svc.StageUpload(c.Request.Context(), caller, service.StageUploadRequest{
		Filename:       req.Filename,
		ContentType:    req.ContentType,
		FileSize:       req.FileSize,
		BrandProfileID: brandProfileID,
	})
	if err != nil {
		if service.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, "StageUpload", err)
		return
	}

	metrics.UploadsStaged.WithLabelValues(result.Material.Type).Inc()
	c.JSON(http.StatusOK, gin.H{
		"uploadUrl":  result.UploadURL,
		"fileKey":    result.FileKey,
		"publicUrl":  result.PublicURL,
		"materialId": result.Material.ID.String(),
	})
}

// ConfirmUpload transitions a staged material to PROCESSING.
// PATCH /api/materials/uploads
func (h *MaterialHandler) ConfirmUpload(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req confirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.MaterialID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Material id is required"})
		return
	}
	materialID, err := uuid.Parse(req.MaterialID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid material id"})
		return
	}

	material, err := h.svc.ConfirmUpload(c.Request.Context(), caller, materialID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
			return
		}
		h.internalError(c, "ConfirmUpload", err)
		return
	}

	metrics.UploadsConfirmed.Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"material": material,
	})
}

// ListMaterials returns the caller's organization materials, newest first.
// GET /api/materials?page=&page_size=&status=
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 32)
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("page_size", "20"), 10, 32)
	status := c.Query("status")

	materials, total, err := h.svc.ListByOrganization(c.Request.Context(), caller, status, int32(page), int32(pageSize))
	if err != nil {
		h.internalError(c, "ListMaterials", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"materials": materials,
		"total":     total,
	})
}

// GetMaterial fetches one material scoped to the caller's organization.
// GET /api/materials/:id
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	materialID, ok := h.pathID(c)
	if !ok {
		return
	}

	material, err := h.svc.GetByID(c.Request.Context(), caller, materialID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
			return
		}
		h.internalError(c, "GetMaterial", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"material": material})
}

// DeleteMaterial removes the stored object and the row.
// DELETE /api/materials/:id
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	materialID, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), caller, materialID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
			return
		}
		h.internalError(c, "DeleteMaterial", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DownloadURL returns a time-limited read URL for the stored object.
// GET /api/materials/:id/download
func (h *MaterialHandler) DownloadURL(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	materialID, ok := h.pathID(c)
	if !ok {
		return
	}

	url, err := h.svc.DownloadURL(c.Request.Context(), caller, materialID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
			return
		}
		h.internalError(c, "DownloadURL", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// requireCaller enforces the session and active-organization preconditions
// shared by every operation.
func (h *MaterialHandler) requireCaller(c *gin.Context) (service.Caller, bool) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return service.Caller{}, false
	}
	if caller.OrganizationID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no organization selected"})
		return service.Caller{}, false
	}
	return caller, true
}

func (h *MaterialHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid material id"})
		return uuid.Nil, false
	}
	return id, true
}

// internalError logs the fault server-side and returns a generic message;
// provider error text never reaches the caller.
func (h *MaterialHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.WithFields(logrus.Fields{
		"component": "material-handler",
		"operation": op,
	}).WithError(err).Error("internal fault")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
