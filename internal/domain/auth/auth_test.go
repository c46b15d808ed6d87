package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "super-secret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", TenantID: "t1", RoleID: "r1", RoleName: RoleHR}

	token, err := GenerateToken(secret, claims, time.Hour)
	require.NoError(t, err)

	parsed, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, parsed.UserID)
	assert.Equal(t, claims.TenantID, parsed.TenantID)
	assert.Equal(t, claims.RoleID, parsed.RoleID)
	assert.Equal(t, claims.RoleName, parsed.RoleName)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}
	for role, perms := range RolePermissions {
		require.NotEmpty(t, perms, "role %s has no permissions", role)
		for _, perm := range perms {
			_, ok := allowed[perm]
			assert.True(t, ok, "role %s has unknown permission %s", role, perm)
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		_, dup := seen[perm]
		require.False(t, dup, "duplicate permission %s", perm)
		seen[perm] = struct{}{}
	}
}

func TestRoleGrantsAreCumulative(t *testing.T) {
	assert.Subset(t, RolePermissions[RoleManager], RolePermissions[RoleEmployee])
	assert.Subset(t, RolePermissions[RoleHR], RolePermissions[RoleManager])
	assert.NotContains(t, RolePermissions[RoleManager], PermPerformanceFinalize)
	assert.ElementsMatch(t, DefaultPermissions, RolePermissions[RoleHR])
}

type fakeUserStore struct {
	user        AuthUser
	err         error
	grants      map[string][]string
	grantLoads  int
	lastLoginID string
}

func (f *fakeUserStore) FindActiveUserByEmail(context.Context, string, string) (AuthUser, error) {
	if f.err != nil {
		return AuthUser{}, f.err
	}
	return f.user, nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, userID string) error {
	f.lastLoginID = userID
	return nil
}

func (f *fakeUserStore) RolePermissions(_ context.Context, roleID string) ([]string, error) {
	f.grantLoads++
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[roleID], nil
}

func TestServiceLogin(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)
	store := &fakeUserStore{user: AuthUser{ID: "u1", TenantID: "t1", RoleID: "r1", RoleName: RoleManager, Password: hash}}
	svc := NewService(store, "secret", time.Hour)

	token, user, err := svc.Login(context.Background(), "m@example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "u1", store.lastLoginID)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, claims.RoleName)

	_, _, err = svc.Login(context.Background(), "m@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	store.err = ErrUserNotFound
	_, _, err = svc.Login(context.Background(), "x@example.com", "Passw0rd!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	store.err = errors.New("connection refused")
	_, _, err = svc.Login(context.Background(), "x@example.com", "Passw0rd!")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestHasPermissionCachesRoleGrants(t *testing.T) {
	store := &fakeUserStore{grants: map[string][]string{"r1": {PermPerformanceRead, PermPerformanceReview}}}
	svc := NewService(store, "secret", time.Hour)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := svc.HasPermission(ctx, "r1", PermPerformanceReview)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, "r1", PermPerformanceFinalize)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, store.grantLoads)

	now = now.Add(2 * time.Minute)
	_, err = svc.HasPermission(ctx, "r1", PermPerformanceRead)
	require.NoError(t, err)
	assert.Equal(t, 2, store.grantLoads)

	store.err = errors.New("db down")
	_, err = svc.HasPermission(ctx, "r2", PermPerformanceRead)
	assert.Error(t, err)
}
