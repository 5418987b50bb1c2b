package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/gateway"
	"github.com/Therealpare/Bookstore/internal/identity"
)

func setup(t *testing.T) (*Service, identity.Provider, *gateway.Memory) {
	t.Helper()
	gw := gateway.NewMemory()
	t.Cleanup(func() { gw.Close() })
	ids := identity.NewGatewayProvider(gw, nil, "test-secret", time.Hour, zap.NewNop())
	return NewService(gw, ids, zap.NewNop()), ids, gw
}

func TestCreateSeedsProfile(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "u1", "Reader", "reader@example.com"))

	profile, found, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Reader", profile.Username)
	assert.Equal(t, "reader@example.com", profile.Email)
	assert.NotZero(t, profile.CreatedAt)
	assert.Zero(t, profile.UpdatedAt)
}

func TestGetMissingProfile(t *testing.T) {
	svc, _, _ := setup(t)

	_, found, err := svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveMergesEditableFields(t *testing.T) {
	svc, ids, _ := setup(t)
	ctx := context.Background()

	session, err := ids.SignUp(ctx, "reader@example.com", "secret1", "Reader")
	require.NoError(t, err)
	uid := session.User.ID

	require.NoError(t, svc.Create(ctx, uid, "Reader", "reader@example.com"))
	require.NoError(t, svc.Save(ctx, uid, "Renamed", "555-0101", "1 Main St"))

	profile, found, err := svc.Get(ctx, uid)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Renamed", profile.Username)
	assert.Equal(t, "555-0101", profile.Phone)
	assert.Equal(t, "1 Main St", profile.Address)
	assert.Equal(t, "reader@example.com", profile.Email)
	assert.NotZero(t, profile.UpdatedAt)

	again, err := ids.SignIn(ctx, "reader@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.User.DisplayName)
}

func TestSaveRejectsEmptyUsername(t *testing.T) {
	svc, _, _ := setup(t)

	err := svc.Save(context.Background(), "u1", "", "", "")
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestWatchDeliversProfileChanges(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "u1", "Reader", "reader@example.com"))

	sub, err := svc.Watch(ctx, "u1")
	require.NoError(t, err)
	defer sub.Cancel()

	select {
	case raw := <-sub.Events():
		assert.Contains(t, string(raw), "Reader")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for profile value")
	}
}
