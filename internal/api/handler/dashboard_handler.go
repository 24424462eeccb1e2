package handler

import (
	"net/http"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type DashboardSource interface {
	Snapshot() service.DashboardSnapshot
	ViewAll(kind string) ([]domain.ActivityRecord, bool)
	RequestRefresh()
}

// activityView bổ sung thời gian tương đối và thời gian hiển thị cho một bản ghi.
type activityView struct {
	domain.ActivityRecord
	TimeAgo     string `json:"time_ago"`
	DisplayTime string `json:"display_time"`
}

type DashboardHandler struct {
	source DashboardSource
	loc    *time.Location
	now    func() time.Time
}

func NewDashboardHandler(source DashboardSource, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardHandler{source: source, loc: loc, now: time.Now}
}

// GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	snapshot := h.source.Snapshot()
	if snapshot.UpdatedAt.IsZero() {
		// Cache chưa được nạp, ví dụ server vừa khởi động lại.
		h.source.RequestRefresh()
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":              snapshot.Stats,
		"spaces":             nonNilSpaces(snapshot.Spaces),
		"recent_payments":    h.views(snapshot.RecentPayments),
		"recent_bookings":    h.views(snapshot.RecentBookings),
		"recent_admin":       h.views(snapshot.RecentAdmin),
		"session_started_at": snapshot.SessionStartedAt,
		"updated_at":         snapshot.UpdatedAt,
	})
}

// GET /api/v1/activity/:kind
func (h *DashboardHandler) ViewAll(c *gin.Context) {
	records, ok := h.source.ViewAll(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Loại hoạt động không hợp lệ (payments, bookings, admin)"})
		return
	}
	c.JSON(http.StatusOK, h.views(records))
}

func (h *DashboardHandler) views(records []domain.ActivityRecord) []activityView {
	now := h.now()
	out := make([]activityView, 0, len(records))
	for _, rec := range records {
		out = append(out, activityView{
			ActivityRecord: rec,
			TimeAgo:        domain.TimeAgo(rec.Time, now),
			DisplayTime:    domain.DisplayTime(rec.Time, h.loc),
		})
	}
	return out
}

func nonNilSpaces(spaces []domain.ParkingSpace) []domain.ParkingSpace {
	if spaces == nil {
		return []domain.ParkingSpace{}
	}
	return spaces
}
