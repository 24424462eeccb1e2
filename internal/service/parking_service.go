package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

var ErrSpaceOccupied = errors.New("chỗ đỗ đang có xe, hãy check-out hoặc sửa trạng thái trước khi xóa")
var ErrInvalidDailyRate = errors.New("giá theo ngày không được âm")
var ErrSpaceNotDeleted = errors.New("không xóa được chỗ đỗ")

// ParkingService quản lý chỗ đỗ (tạo, xem, xóa). Việc xóa dùng chung chuỗi giữ lịch sử của Reconciler.
type ParkingService struct {
	spaceRepo  repository.ParkingSpaceRepository
	adminLog   repository.ActivityRepository
	reconciler *Reconciler
	refresher  Refresher
}

func NewParkingService(spaceRepo repository.ParkingSpaceRepository, adminLog repository.ActivityRepository, reconciler *Reconciler) *ParkingService {
	return &ParkingService{
		spaceRepo:  spaceRepo,
		adminLog:   adminLog,
		reconciler: reconciler,
	}
}

func (s *ParkingService) SetRefresher(refresher Refresher) {
	s.refresher = refresher
}

func (s *ParkingService) CreateParkingSpace(ctx context.Context, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	if dto.DailyRate.LessThan(decimal.Zero) {
		return nil, ErrInvalidDailyRate
	}
	space := &domain.ParkingSpace{
		SpaceNumber: strings.TrimSpace(dto.SpaceNumber),
		Section:     strings.TrimSpace(dto.Section),
		Address:     dto.Address,
		Category:    dto.Category,
		DailyRate:   dto.DailyRate,
	}
	created, err := s.spaceRepo.Create(ctx, space)
	if err != nil {
		return nil, err
	}
	s.logAdmin(ctx, domain.ActionCreateSpace, fmt.Sprintf("Parking space %s created", created.Label()), created)
	s.refresh()
	return created, nil
}

func (s *ParkingService) GetParkingSpaceByID(ctx context.Context, id string) (*domain.ParkingSpace, error) {
	return s.spaceRepo.FindByID(ctx, id)
}

func (s *ParkingService) GetAllParkingSpaces(ctx context.Context) ([]domain.ParkingSpace, error) {
	return s.spaceRepo.FindAll(ctx)
}

// DeleteParkingSpace tách lịch sử rồi xóa chỗ đỗ. Chỗ đỗ đang có xe không được xóa.
func (s *ParkingService) DeleteParkingSpace(ctx context.Context, id string) error {
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if space.IsOccupied {
		return ErrSpaceOccupied
	}

	deleted, err := s.reconciler.PreserveSpaceHistory(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSpaceNotDeleted
	}
	s.logAdmin(ctx, domain.ActionDeleteSpace, fmt.Sprintf("Parking space %s deleted", space.Label()), space)
	s.refresh()
	return nil
}

func (s *ParkingService) logAdmin(ctx context.Context, action, message string, space *domain.ParkingSpace) {
	if s.adminLog == nil {
		return
	}
	fields := map[string]string{
		domain.DetailMessage:     message,
		domain.DetailSpaceNumber: space.SpaceNumber,
	}
	if space.Section != "" {
		fields[domain.DetailSpaceSection] = space.Section
	}
	entry := &domain.ActivityLog{
		ActivityType: domain.ActivityAdmin.String(),
		Action:       action,
		Details:      domain.Structured(fields).Encode(),
		SpaceID:      null.StringFrom(space.ID),
	}
	if err := s.adminLog.Create(ctx, entry); err != nil {
		log.Printf("ParkingService: Lỗi khi ghi admin activity '%s': %v", action, err)
	}
}

func (s *ParkingService) refresh() {
	if s.refresher != nil {
		s.refresher.RequestRefresh()
	}
}
