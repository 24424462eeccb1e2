package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.profiles == nil {
		r.profiles = map[string]domain.Profile{}
	}
	if _, ok := r.profiles[p.Email]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	p.ID = "id-" + p.Email
	r.profiles[p.Email] = *p
	return p, nil
}

func (r *fakeProfileRepo) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeProfileRepo) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &fakeProfileRepo{}
	s := NewAuthService(repo, "secret", time.Hour)
	s.now = func() time.Time { return time.Now().Truncate(time.Second) }
	ctx := context.Background()

	if err := s.EnsureAdmin(ctx, "admin@lot.test", "pw"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	// Lần thứ hai không tạo lại tài khoản.
	if err := s.EnsureAdmin(ctx, "admin@lot.test", "other"); err != nil {
		t.Fatalf("EnsureAdmin() second call error = %v", err)
	}

	tests := []struct {
		name    string
		dto     domain.LoginDTO
		wantErr error
	}{
		{name: "valid", dto: domain.LoginDTO{Email: " admin@lot.test ", Password: "pw"}},
		{name: "wrong password", dto: domain.LoginDTO{Email: "admin@lot.test", Password: "other"}, wantErr: ErrInvalidCredentials},
		{name: "unknown email", dto: domain.LoginDTO{Email: "x@lot.test", Password: "pw"}, wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Login(ctx, tt.dto)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if resp.Role != domain.RoleAdmin || resp.SessionStartedAt.IsZero() {
				t.Errorf("response = %+v", resp)
			}
			_, claims, err := s.ValidateToken(resp.Token)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims["sub"] != resp.UserID || claims["role"] != domain.RoleAdmin {
				t.Errorf("claims = %v", claims)
			}
		})
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	s := NewAuthService(&fakeProfileRepo{}, "secret", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	expiredToken, _ := expired.SignedString([]byte("secret"))
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"})
	foreignToken, _ := foreign.SignedString([]byte("another-secret"))

	for name, token := range map[string]string{"expired": expiredToken, "wrong key": foreignToken, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			if _, _, err := s.ValidateToken(token); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ValidateToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
