package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"gopkg.in/guregu/null.v4"
)

var ErrSpaceRequired = errors.New("thiếu ID chỗ đỗ")
var ErrDecoupleFailed = errors.New("không thể tách các phiên khỏi chỗ đỗ, hủy xóa chỗ đỗ")

// Refresher được gọi sau mỗi thao tác để làm mới cache dashboard (không chờ kết quả).
type Refresher interface {
	RequestRefresh()
}

// OccupancyPublisher đẩy trạng thái chỗ đỗ ra thiết bị hiển thị tại bãi.
type OccupancyPublisher interface {
	PublishOccupancy(ctx context.Context, space domain.ParkingSpace) error
}

type ScanResult struct {
	SpaceID        string `json:"space_id"`
	SpaceNumber    string `json:"space_number"`
	SessionID      string `json:"session_id,omitempty"`
	SessionUpdated bool   `json:"session_updated"`
	SpaceDeleted   bool   `json:"space_deleted"`
	Message        string `json:"message"`
}

type Inconsistency struct {
	SpaceID       string    `json:"space_id"`
	SpaceNumber   string    `json:"space_number"`
	Detected      bool      `json:"detected"`
	OccupiedSince null.Time `json:"occupied_since"`
	SessionID     string    `json:"session_id,omitempty"`
	Message       string    `json:"message"`
}

type Reconciler struct {
	spaceRepo   repository.ParkingSpaceRepository
	sessionRepo repository.ParkingSessionRepository
	vehicleRepo repository.VehicleRepository
	adminLog    repository.ActivityRepository
	userLog     repository.ActivityRepository
	refresher   Refresher
	indicator   OccupancyPublisher
	now         func() time.Time
}

func NewReconciler(
	spaceRepo repository.ParkingSpaceRepository,
	sessionRepo repository.ParkingSessionRepository,
	vehicleRepo repository.VehicleRepository,
	adminLog repository.ActivityRepository,
	userLog repository.ActivityRepository,
) *Reconciler {
	return &Reconciler{
		spaceRepo:   spaceRepo,
		sessionRepo: sessionRepo,
		vehicleRepo: vehicleRepo,
		adminLog:    adminLog,
		userLog:     userLog,
		now:         time.Now,
	}
}

// SetRefresher gắn Sync Controller sau khi khởi tạo (hai bên phụ thuộc lẫn nhau).
func (r *Reconciler) SetRefresher(refresher Refresher) {
	r.refresher = refresher
}

func (r *Reconciler) SetIndicator(indicator OccupancyPublisher) {
	r.indicator = indicator
}

// CheckIn đánh dấu chỗ đỗ có xe. Chỉ lỗi ghi chỗ đỗ làm thất bại thao tác.
func (r *Reconciler) CheckIn(ctx context.Context, spaceID string, rawPayload string) (*ScanResult, error) {
	payload := domain.ParseScanPayload(rawPayload)
	session := r.lookupSession(ctx, payload.SessionID)
	spaceID = resolveSpaceID(spaceID, payload, session)
	if spaceID == "" {
		return nil, ErrSpaceRequired
	}

	vehicleID := payload.VehicleID
	if vehicleID == "" && session != nil && session.VehicleID.Valid {
		vehicleID = session.VehicleID.String
	}

	now := r.now().UTC()
	if err := r.spaceRepo.SetOccupied(ctx, spaceID, vehicleID, now); err != nil {
		return nil, fmt.Errorf("Reconciler.CheckIn: %w", err)
	}
	result := &ScanResult{SpaceID: spaceID, SessionID: payload.SessionID}

	if payload.SessionID != "" {
		result.SessionUpdated = r.transitionSession(ctx, payload.SessionID, domain.SessionCheckedIn, &now, nil)
	}

	kind := r.vehicleKind(ctx, vehicleID)
	space := r.lookupSpace(ctx, spaceID)
	number, section := spaceLabel(space)
	result.SpaceNumber = number
	result.Message = fmt.Sprintf("%s checked in to space %s", kind, number)

	r.logAdmin(ctx, domain.ActionCheckIn, result.Message, spaceID, session, number, section)
	if space != nil {
		r.publish(ctx, *space)
	}
	r.refresh()
	return result, nil
}

// CheckOut giải phóng chỗ đỗ, hoàn tất phiên rồi tách lịch sử và xóa chỗ đỗ.
func (r *Reconciler) CheckOut(ctx context.Context, spaceID string, rawPayload string) (*ScanResult, error) {
	payload := domain.ParseScanPayload(rawPayload)
	session := r.lookupSession(ctx, payload.SessionID)
	spaceID = resolveSpaceID(spaceID, payload, session)
	if spaceID == "" {
		return nil, ErrSpaceRequired
	}

	// Đọc trước khi xóa occupancy để còn vehicle_id cho dòng log.
	before := r.lookupSpace(ctx, spaceID)

	if err := r.spaceRepo.ClearOccupancy(ctx, spaceID); err != nil {
		return nil, fmt.Errorf("Reconciler.CheckOut: %w", err)
	}
	result := &ScanResult{SpaceID: spaceID, SessionID: payload.SessionID}

	now := r.now().UTC()
	if payload.SessionID != "" {
		result.SessionUpdated = r.transitionSession(ctx, payload.SessionID, domain.SessionCompleted, nil, &now)
	}

	vehicleID := ""
	if before != nil && before.VehicleID.Valid {
		vehicleID = before.VehicleID.String
	} else if session != nil && session.VehicleID.Valid {
		vehicleID = session.VehicleID.String
	}
	kind := r.vehicleKind(ctx, vehicleID)
	number, section := spaceLabel(before)
	result.SpaceNumber = number
	result.Message = fmt.Sprintf("%s checked out from space %s", kind, number)

	r.logAdmin(ctx, domain.ActionCheckOut, result.Message, spaceID, session, number, section)
	if before != nil {
		vacated := *before
		vacated.IsOccupied = false
		vacated.OccupiedSince = null.Time{}
		vacated.VehicleID = null.String{}
		r.publish(ctx, vacated)
	}

	deleted, err := r.PreserveSpaceHistory(ctx, spaceID)
	if err != nil {
		log.Printf("Reconciler: %v (space %s)", err, spaceID)
	}
	result.SpaceDeleted = deleted

	r.refresh()
	return result, nil
}

// PreserveSpaceHistory tách mọi phiên khỏi chỗ đỗ, chép số chỗ/section vào các log liên quan
// rồi xóa chỗ đỗ. Lỗi tách phiên trả về ErrDecoupleFailed và không xóa;
// lỗi ở bước xóa chỉ được ghi log và trả về false.
func (r *Reconciler) PreserveSpaceHistory(ctx context.Context, spaceID string) (bool, error) {
	sessions, err := r.sessionRepo.FindBySpaceID(ctx, spaceID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDecoupleFailed, err)
	}
	sessionIDs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		sessionIDs = append(sessionIDs, s.ID)
	}
	if len(sessionIDs) > 0 {
		detached, err := r.sessionRepo.DetachSpace(ctx, sessionIDs)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrDecoupleFailed, err)
		}
		log.Printf("Reconciler: Đã tách %d phiên khỏi chỗ đỗ %s", detached, spaceID)
	}

	space, err := r.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		log.Printf("Reconciler: Không đọc được chỗ đỗ %s trước khi xóa, bỏ qua bổ sung log: %v", spaceID, err)
	} else {
		r.enrichLogs(ctx, r.userLog, "user_activities", spaceID, sessionIDs, space.SpaceNumber, space.Section)
		r.enrichLogs(ctx, r.adminLog, "admin_activities", spaceID, sessionIDs, space.SpaceNumber, space.Section)
	}

	if err := r.spaceRepo.Delete(ctx, spaceID); err != nil {
		log.Printf("Reconciler: Lỗi khi xóa chỗ đỗ %s: %v", spaceID, err)
		return false, nil
	}
	log.Printf("Reconciler: Đã xóa chỗ đỗ %s, lịch sử được giữ lại", spaceID)
	return true, nil
}

func (r *Reconciler) enrichLogs(ctx context.Context, repo repository.ActivityRepository, table, spaceID string,
	sessionIDs []string, number, section string) {
	if repo == nil {
		return
	}
	entries, err := repo.FindBySpaceOrSessions(ctx, spaceID, sessionIDs)
	if err != nil {
		log.Printf("Reconciler: Lỗi khi tìm log %s của chỗ đỗ %s: %v", table, spaceID, err)
		return
	}
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true

		merged, changed := EnrichSpaceIdentity(domain.ParseDetails(entry.Details), number, section)
		if !changed {
			continue
		}
		if err := repo.UpdateDetails(ctx, entry.ID, merged.Encode()); err != nil {
			log.Printf("Reconciler: Lỗi khi cập nhật details cho log %s/%s: %v", table, entry.ID, err)
		}
	}
}

// EnrichSpaceIdentity gộp space_number/space_section vào details nếu chưa có space_number.
// Details dạng chuỗi tự do được giữ lại dưới key "message".
func EnrichSpaceIdentity(details domain.Details, number, section string) (domain.Details, bool) {
	if _, ok := details.NonEmpty(domain.DetailSpaceNumber); ok {
		return details, false
	}
	if strings.TrimSpace(number) == "" {
		return details, false
	}
	merged := details.With(domain.DetailSpaceNumber, number)
	if section != "" {
		merged = merged.With(domain.DetailSpaceSection, section)
	}
	return merged, true
}

// DetectInconsistency báo khi chỗ đỗ đang có xe nhưng không có phiên checked_in nào.
func (r *Reconciler) DetectInconsistency(ctx context.Context, spaceID string) (*Inconsistency, error) {
	space, err := r.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	report := &Inconsistency{
		SpaceID:       space.ID,
		SpaceNumber:   space.SpaceNumber,
		OccupiedSince: space.OccupiedSince,
	}
	if !space.IsOccupied {
		report.Message = "Space is available"
		return report, nil
	}

	session, err := r.sessionRepo.FindActiveBySpaceID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSession) {
			report.Detected = true
			report.Message = "Data Inconsistency Detected"
			return report, nil
		}
		return nil, fmt.Errorf("Reconciler.DetectInconsistency: %w", err)
	}
	report.SessionID = session.ID
	report.Message = "Space is occupied by an active session"
	return report, nil
}

// RepairOccupancy chỉ xóa cờ occupancy; không đụng tới phiên hay lịch sử.
func (r *Reconciler) RepairOccupancy(ctx context.Context, spaceID string) error {
	if err := r.spaceRepo.ClearOccupancy(ctx, spaceID); err != nil {
		return fmt.Errorf("Reconciler.RepairOccupancy: %w", err)
	}
	space := r.lookupSpace(ctx, spaceID)
	number, section := spaceLabel(space)
	r.logAdmin(ctx, domain.ActionRepairOccupancy,
		fmt.Sprintf("Occupancy manually reset for space %s", number), spaceID, nil, number, section)
	if space != nil {
		r.publish(ctx, *space)
	}
	r.refresh()
	return nil
}

func (r *Reconciler) transitionSession(ctx context.Context, sessionID string, status domain.SessionStatus, start, end *time.Time) bool {
	updated, err := r.sessionRepo.SetStatus(ctx, sessionID, status)
	if err != nil {
		log.Printf("Reconciler: Cảnh báo, không cập nhật được trạng thái phiên %s -> %s: %v", sessionID, status, err)
		return false
	}
	if !updated {
		log.Printf("Reconciler: Cảnh báo, không có phiên %s để chuyển sang %s", sessionID, status)
		return false
	}
	if _, err := r.sessionRepo.SetTimestamps(ctx, sessionID, start, end); err != nil {
		log.Printf("Reconciler: Cảnh báo, không ghi được thời gian cho phiên %s: %v", sessionID, err)
	}
	return true
}

// resolveSpaceID: tham số gọi, rồi space_id trong payload, rồi chỗ đỗ của phiên.
func resolveSpaceID(spaceID string, payload domain.ScanPayload, session *domain.ParkingSession) string {
	if spaceID != "" {
		return spaceID
	}
	if payload.SpaceID != "" {
		return payload.SpaceID
	}
	if session != nil && session.SpaceID.Valid {
		return session.SpaceID.String
	}
	return ""
}

func (r *Reconciler) lookupSession(ctx context.Context, sessionID string) *domain.ParkingSession {
	if sessionID == "" {
		return nil
	}
	session, err := r.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		log.Printf("Reconciler: Không tìm thấy phiên %s: %v", sessionID, err)
		return nil
	}
	return session
}

func (r *Reconciler) lookupSpace(ctx context.Context, spaceID string) *domain.ParkingSpace {
	space, err := r.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		log.Printf("Reconciler: Không đọc được chỗ đỗ %s: %v", spaceID, err)
		return nil
	}
	return space
}

func (r *Reconciler) vehicleKind(ctx context.Context, vehicleID string) string {
	if vehicleID == "" || r.vehicleRepo == nil {
		return "Vehicle"
	}
	vehicle, err := r.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		log.Printf("Reconciler: Không đọc được xe %s: %v", vehicleID, err)
		return "Vehicle"
	}
	return vehicle.Kind()
}

func spaceLabel(space *domain.ParkingSpace) (number, section string) {
	if space == nil || space.SpaceNumber == "" {
		return "unknown space", ""
	}
	return space.SpaceNumber, space.Section
}

func (r *Reconciler) logAdmin(ctx context.Context, action, message, spaceID string, session *domain.ParkingSession, number, section string) {
	if r.adminLog == nil {
		return
	}
	fields := map[string]string{domain.DetailMessage: message}
	if number != "unknown space" {
		fields[domain.DetailSpaceNumber] = number
		if section != "" {
			fields[domain.DetailSpaceSection] = section
		}
	}
	entry := &domain.ActivityLog{
		ActivityType: domain.ActivityAdmin.String(),
		Action:       action,
		Details:      domain.Structured(fields).Encode(),
		SpaceID:      null.StringFrom(spaceID),
	}
	if session != nil {
		entry.SessionID = null.StringFrom(session.ID)
		entry.UserID = null.StringFrom(session.UserID)
	}
	if err := r.adminLog.Create(ctx, entry); err != nil {
		log.Printf("Reconciler: Lỗi khi ghi admin activity '%s': %v", action, err)
	}
}

func (r *Reconciler) publish(ctx context.Context, space domain.ParkingSpace) {
	if r.indicator == nil {
		return
	}
	if err := r.indicator.PublishOccupancy(ctx, space); err != nil {
		log.Printf("Reconciler: Lỗi khi gửi trạng thái chỗ đỗ %s tới thiết bị: %v", space.SpaceNumber, err)
	}
}

func (r *Reconciler) refresh() {
	if r.refresher != nil {
		r.refresher.RequestRefresh()
	}
}
