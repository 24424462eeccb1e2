package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")
var ErrNoActiveSession = errors.New("không tìm thấy phiên đỗ xe đang hoạt động cho chỗ đỗ này")

type ParkingSpaceRepository interface {
	Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error)
	FindByID(ctx context.Context, id string) (*domain.ParkingSpace, error)
	FindAll(ctx context.Context) ([]domain.ParkingSpace, error)
	SetOccupied(ctx context.Context, id string, vehicleID string, since time.Time) error
	ClearOccupancy(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	FindByID(ctx context.Context, id string) (*domain.Vehicle, error)
	FindByOwner(ctx context.Context, ownerID string) ([]domain.Vehicle, error)
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	FindByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

type ParkingSessionRepository interface {
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	FindByID(ctx context.Context, id string) (*domain.ParkingSession, error)
	// Tất cả phiên còn trỏ tới chỗ đỗ, mọi trạng thái.
	FindBySpaceID(ctx context.Context, spaceID string) ([]domain.ParkingSession, error)
	FindActiveBySpaceID(ctx context.Context, spaceID string) (*domain.ParkingSession, error)
	// SetStatus và SetTimestamps gọi hàm admin trong DB; false nghĩa là không có dòng nào được cập nhật.
	SetStatus(ctx context.Context, id string, status domain.SessionStatus) (bool, error)
	SetTimestamps(ctx context.Context, id string, start *time.Time, end *time.Time) (bool, error)
	DetachSpace(ctx context.Context, sessionIDs []string) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Payment, error)
	ExistsCompleted(ctx context.Context, sessionID string, userID string) (bool, error)
	SumCompleted(ctx context.Context) (decimal.Decimal, error)
	SumCompletedSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

// ActivityRepository dùng chung cho admin_activities và user_activities.
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	// activityType rỗng nghĩa là không lọc.
	ListRecent(ctx context.Context, activityType string, limit int) ([]domain.ActivityLog, error)
	FindBySpaceOrSessions(ctx context.Context, spaceID string, sessionIDs []string) ([]domain.ActivityLog, error)
	UpdateDetails(ctx context.Context, id string, details string) error
}
