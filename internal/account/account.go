package account

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/gateway"
	"github.com/Therealpare/Bookstore/internal/identity"
)

// ErrEmptyUsername is returned when a profile save carries no username.
var ErrEmptyUsername = errors.New("username cannot be empty")

const usersPath = "users"

// Path is the gateway path of a user's profile record.
func Path(userID string) string {
	return usersPath + "/" + userID
}

// Profile is the per-user record stored alongside the external identity.
type Profile struct {
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

// Service reads and writes user profiles.
type Service struct {
	gw  gateway.Gateway
	ids identity.Provider
	log *zap.Logger
}

func NewService(gw gateway.Gateway, ids identity.Provider, log *zap.Logger) *Service {
	return &Service{gw: gw, ids: ids, log: log}
}

// Create seeds the profile record at sign-up time.
func (s *Service) Create(ctx context.Context, userID, username, email string) error {
	profile := Profile{
		Username:  username,
		Email:     email,
		Address:   "",
		CreatedAt: time.Now().UnixMilli(),
	}
	return s.gw.Write(ctx, Path(userID), profile)
}

// Get loads the profile record. The boolean reports whether one exists.
func (s *Service) Get(ctx context.Context, userID string) (Profile, bool, error) {
	var profile Profile
	found, err := s.gw.Read(ctx, Path(userID), &profile)
	return profile, found, err
}

// Save merges the editable fields into the profile and keeps the identity
// display name in sync. An empty username is rejected before any write.
func (s *Service) Save(ctx context.Context, userID, username, phone, address string) error {
	if username == "" {
		return ErrEmptyUsername
	}

	if err := s.ids.UpdateDisplayName(ctx, userID, username); err != nil {
		return err
	}

	err := s.gw.Update(ctx, Path(userID), map[string]interface{}{
		"username":  username,
		"phone":     phone,
		"address":   address,
		"updatedAt": time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	s.log.Info("Profile updated", zap.String("user_id", userID))
	return nil
}

// Watch returns a live subscription to the profile record.
func (s *Service) Watch(ctx context.Context, userID string) (*gateway.Subscription, error) {
	return s.gw.Subscribe(ctx, Path(userID))
}
