package domain

import "github.com/shopspring/decimal"

type DashboardStats struct {
	TotalSpaces     int             `json:"total_spaces"`
	OccupiedSpaces  int             `json:"occupied_spaces"`
	AvailableSpaces int             `json:"available_spaces"`
	DailyRevenue    decimal.Decimal `json:"daily_revenue"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

// ComputeSpaceStats tính lại số chỗ từ danh sách; doanh thu giữ nguyên giá trị cũ.
func ComputeSpaceStats(spaces []ParkingSpace, prev DashboardStats) DashboardStats {
	stats := prev
	stats.TotalSpaces = len(spaces)
	stats.OccupiedSpaces = 0
	for _, s := range spaces {
		if s.IsOccupied {
			stats.OccupiedSpaces++
		}
	}
	stats.AvailableSpaces = stats.TotalSpaces - stats.OccupiedSpaces
	return stats
}
