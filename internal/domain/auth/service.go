package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	UserStatusActive = "active"

	permissionCacheTTL = time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email, status string) (AuthUser, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	RolePermissions(ctx context.Context, roleID string) ([]string, error)
}

type roleGrants struct {
	keys     map[string]struct{}
	loadedAt time.Time
}

type Service struct {
	store    StoreAPI
	secret   string
	tokenTTL time.Duration
	now      func() time.Time

	mu     sync.Mutex
	grants map[string]roleGrants
}

func NewService(store StoreAPI, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      time.Now,
		grants:   map[string]roleGrants{},
	}
}

// Login verifies the credentials and returns a signed access token. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, AuthUser, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, email, UserStatusActive)
	if errors.Is(err, ErrUserNotFound) {
		return "", AuthUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", AuthUser{}, err
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return "", AuthUser{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.secret, Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		RoleID:   user.RoleID,
		RoleName: user.RoleName,
	}, s.tokenTTL)
	if err != nil {
		return "", AuthUser{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		zap.L().Warn("last login update failed", zap.String("userId", user.ID), zap.Error(err))
	}
	return token, user, nil
}

// HasPermission answers from a per-role grant set refreshed every minute.
func (s *Service) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	s.mu.Lock()
	cached, ok := s.grants[roleID]
	s.mu.Unlock()
	if !ok || s.now().Sub(cached.loadedAt) > permissionCacheTTL {
		keys, err := s.store.RolePermissions(ctx, roleID)
		if err != nil {
			return false, err
		}
		cached = roleGrants{keys: make(map[string]struct{}, len(keys)), loadedAt: s.now()}
		for _, key := range keys {
			cached.keys[key] = struct{}{}
		}
		s.mu.Lock()
		s.grants[roleID] = cached
		s.mu.Unlock()
	}
	_, allowed := cached.keys[permission]
	return allowed, nil
}
