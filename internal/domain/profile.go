package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"` // Không bao giờ trả về password hash trong JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName dùng khi không lấy được tên đầy đủ: rút gọn ID.
func (p *Profile) DisplayName() string {
	if p == nil {
		return "unknown user"
	}
	if p.FullName != "" {
		return p.FullName
	}
	if p.Email != "" {
		return p.Email
	}
	return ShortID(p.ID)
}

// ShortID cắt ID còn 8 ký tự để hiển thị.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token            string    `json:"token"`
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	SessionStartedAt time.Time `json:"session_started_at"`
}
