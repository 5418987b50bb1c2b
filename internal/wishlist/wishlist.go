package wishlist

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/catalog"
	"github.com/Therealpare/Bookstore/internal/gateway"
)

// ErrNotAuthenticated is returned when a wishlist operation is attempted
// without a signed-in user.
var ErrNotAuthenticated = errors.New("not authenticated")

const wishlistsPath = "wishlists"

// UserPath is the gateway path of one user's wishlist.
func UserPath(userID string) string {
	return wishlistsPath + "/" + userID
}

// Path is the gateway path of a single wishlist entry. The book id is the
// key, so duplicates cannot exist.
func Path(userID, bookID string) string {
	return UserPath(userID) + "/" + bookID
}

// Entry is a saved-book marker carrying a snapshot of the book at save
// time.
type Entry struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Price     catalog.Price `json:"price"`
	Picture   string        `json:"picture,omitempty"`
	CreatedAt int64         `json:"createdAt"`
}

// Service performs wishlist membership operations.
type Service struct {
	gw  gateway.Gateway
	log *zap.Logger
}

func NewService(gw gateway.Gateway, log *zap.Logger) *Service {
	return &Service{gw: gw, log: log}
}

// Toggle flips the membership of book in the user's wishlist and reports
// whether the book is now present. The existence check and the following
// write are separate round trips, so a rapid double toggle can race.
func (s *Service) Toggle(ctx context.Context, userID string, book catalog.Book) (added bool, err error) {
	if userID == "" {
		return false, ErrNotAuthenticated
	}

	path := Path(userID, book.ID)
	exists, err := s.gw.Read(ctx, path, nil)
	if err != nil {
		return false, err
	}

	if exists {
		if err := s.gw.Remove(ctx, path); err != nil {
			return false, err
		}
		s.log.Debug("Wishlist entry removed", zap.String("user_id", userID), zap.String("book_id", book.ID))
		return false, nil
	}

	entry := Entry{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Price:     book.Price,
		Picture:   book.Picture,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.gw.Write(ctx, path, entry); err != nil {
		return false, err
	}
	s.log.Debug("Wishlist entry added", zap.String("user_id", userID), zap.String("book_id", book.ID))
	return true, nil
}

// Contains reports current membership via a point read.
func (s *Service) Contains(ctx context.Context, userID, bookID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.gw.Read(ctx, Path(userID, bookID), nil)
}

// Remove deletes the entry unconditionally.
func (s *Service) Remove(ctx context.Context, userID, bookID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	return s.gw.Remove(ctx, Path(userID, bookID))
}

// List is a one-shot read of the user's entries, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	records := map[string]Entry{}
	if _, err := s.gw.Read(ctx, UserPath(userID), &records); err != nil {
		return nil, err
	}
	return sorted(records), nil
}
