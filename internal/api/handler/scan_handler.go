package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type ScanReconciler interface {
	CheckIn(ctx context.Context, spaceID string, rawPayload string) (*service.ScanResult, error)
	CheckOut(ctx context.Context, spaceID string, rawPayload string) (*service.ScanResult, error)
	DetectInconsistency(ctx context.Context, spaceID string) (*service.Inconsistency, error)
	RepairOccupancy(ctx context.Context, spaceID string) error
}

type scanRequest struct {
	Payload string `json:"payload"`
}

type ScanHandler struct {
	reconciler ScanReconciler
}

func NewScanHandler(r ScanReconciler) *ScanHandler {
	return &ScanHandler{reconciler: r}
}

// POST /api/v1/parking-spaces/:id/check-in
func (h *ScanHandler) CheckIn(c *gin.Context) {
	h.scan(c, h.reconciler.CheckIn, "Check-in thất bại")
}

// POST /api/v1/parking-spaces/:id/check-out
func (h *ScanHandler) CheckOut(c *gin.Context) {
	h.scan(c, h.reconciler.CheckOut, "Check-out thất bại")
}

func (h *ScanHandler) scan(c *gin.Context, op func(context.Context, string, string) (*service.ScanResult, error), failure string) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := op(c.Request.Context(), c.Param("id"), req.Payload)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		if errors.Is(err, service.ErrSpaceRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": failure, "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// GET /api/v1/parking-spaces/:id/consistency
func (h *ScanHandler) CheckConsistency(c *gin.Context) {
	report, err := h.reconciler.DetectInconsistency(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi kiểm tra trạng thái chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/v1/parking-spaces/:id/repair
func (h *ScanHandler) RepairOccupancy(c *gin.Context) {
	if err := h.reconciler.RepairOccupancy(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Không thể sửa trạng thái chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Đã đặt lại trạng thái chỗ đỗ thành trống"})
}
