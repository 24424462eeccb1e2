package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type SpaceService interface {
	CreateParkingSpace(ctx context.Context, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error)
	GetParkingSpaceByID(ctx context.Context, id string) (*domain.ParkingSpace, error)
	GetAllParkingSpaces(ctx context.Context) ([]domain.ParkingSpace, error)
	DeleteParkingSpace(ctx context.Context, id string) error
}

type ParkingSpaceHandler struct {
	parkingService SpaceService
}

func NewParkingSpaceHandler(ps SpaceService) *ParkingSpaceHandler {
	return &ParkingSpaceHandler{parkingService: ps}
}

// POST /api/v1/parking-spaces
func (h *ParkingSpaceHandler) CreateParkingSpace(c *gin.Context) {
	var dto domain.ParkingSpaceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	space, err := h.parkingService.CreateParkingSpace(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrInvalidDailyRate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo chỗ đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, space)
}

// GET /api/v1/parking-spaces
func (h *ParkingSpaceHandler) GetAllParkingSpaces(c *gin.Context) {
	spaces, err := h.parkingService.GetAllParkingSpaces(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách chỗ đỗ xe"})
		return
	}
	if spaces == nil {
		spaces = []domain.ParkingSpace{}
	}
	c.JSON(http.StatusOK, spaces)
}

// GET /api/v1/parking-spaces/:id
func (h *ParkingSpaceHandler) GetParkingSpaceByID(c *gin.Context) {
	space, err := h.parkingService.GetParkingSpaceByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy thông tin chỗ đỗ xe"})
		return
	}
	c.JSON(http.StatusOK, space)
}

// DELETE /api/v1/parking-spaces/:id?confirm=true
func (h *ParkingSpaceHandler) DeleteParkingSpace(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cần xác nhận xóa chỗ đỗ (confirm=true)"})
		return
	}

	err := h.parkingService.DeleteParkingSpace(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe để xóa"})
		case errors.Is(err, service.ErrSpaceOccupied):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrDecoupleFailed):
			c.JSON(http.StatusConflict, gin.H{"error": "Không thể xóa chỗ đỗ vì chưa tách được lịch sử phiên", "details": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa chỗ đỗ xe", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Đã xóa chỗ đỗ xe, lịch sử được giữ lại"})
}
