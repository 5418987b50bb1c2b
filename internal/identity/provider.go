package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Therealpare/Bookstore/internal/gateway"
)

const (
	accountsPath     = "accounts"
	accountIndexPath = "accountIndex"
	resetTokensPath  = "passwordResets"

	minPasswordLen = 6
	resetTokenTTL  = time.Hour
)

// account is the stored credential record. It is kept out of the paths the
// storefront views read.
type account struct {
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"`
}

type emailIndex struct {
	UserID string `json:"uid"`
}

type resetToken struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
}

// GatewayProvider is a Provider that keeps its accounts in the remote data
// gateway and issues signed JWT session tokens.
type GatewayProvider struct {
	gw         gateway.Gateway
	mailer     Mailer
	log        *zap.Logger
	secret     []byte
	sessionTTL time.Duration

	mu       sync.Mutex
	revoked  map[string]time.Time // jti -> expiry, for sign-out
	handlers map[int]func(StateEvent)
	nextID   int
}

// NewGatewayProvider creates an identity provider. mailer may be nil, in
// which case reset tokens are only logged.
func NewGatewayProvider(gw gateway.Gateway, mailer Mailer, secret string, sessionTTL time.Duration, log *zap.Logger) *GatewayProvider {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &GatewayProvider{
		gw:         gw,
		mailer:     mailer,
		log:        log,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		revoked:    map[string]time.Time{},
		handlers:   map[int]func(StateEvent){},
	}
}

func (p *GatewayProvider) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" || displayName == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	taken, err := p.gw.Read(ctx, indexPath(email), nil)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.NewString()
	acc := account{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := p.gw.Write(ctx, accountPath(userID), acc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if err := p.gw.Write(ctx, indexPath(email), emailIndex{UserID: userID}); err != nil {
		return nil, fmt.Errorf("index account: %w", err)
	}

	p.log.Info("Account created", zap.String("user_id", userID))

	user := User{ID: userID, Email: email, DisplayName: displayName}
	session, err := p.issue(user)
	if err != nil {
		return nil, err
	}
	p.broadcast(StateEvent{SignedIn: true, User: user})
	return session, nil
}

func (p *GatewayProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	var idx emailIndex
	found, err := p.gw.Read(ctx, indexPath(email), &idx)
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}
	if !found {
		return nil, ErrInvalidCredentials
	}

	var acc account
	found, err = p.gw.Read(ctx, accountPath(idx.UserID), &acc)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !found {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	user := User{ID: idx.UserID, Email: acc.Email, DisplayName: acc.DisplayName}
	session, err := p.issue(user)
	if err != nil {
		return nil, err
	}
	p.broadcast(StateEvent{SignedIn: true, User: user})
	return session, nil
}

func (p *GatewayProvider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return ErrInvalidToken
	}

	exp := time.Now().Add(p.sessionTTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	p.mu.Lock()
	p.revoked[claims.ID] = exp
	p.pruneRevokedLocked()
	p.mu.Unlock()

	p.broadcast(StateEvent{SignedIn: false, User: claims.user()})
	return nil
}

func (p *GatewayProvider) CurrentUser(ctx context.Context, token string) (*User, error) {
	claims, err := p.parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	p.mu.Lock()
	_, revoked := p.revoked[claims.ID]
	p.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}

	user := claims.user()
	return &user, nil
}

func (p *GatewayProvider) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	var idx emailIndex
	found, err := p.gw.Read(ctx, indexPath(email), &idx)
	if err != nil {
		return fmt.Errorf("look up account: %w", err)
	}
	if !found {
		return ErrAccountNotFound
	}

	token := uuid.NewString()
	record := resetToken{
		UserID:    idx.UserID,
		Email:     email,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := p.gw.Write(ctx, resetTokensPath+"/"+token, record); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if p.mailer != nil {
		if err := p.mailer.SendPasswordReset(ctx, email, token); err != nil {
			return fmt.Errorf("send reset email: %w", err)
		}
	} else {
		p.log.Info("Password reset issued", zap.String("user_id", idx.UserID))
	}
	return nil
}

func (p *GatewayProvider) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}

	var record resetToken
	found, err := p.gw.Read(ctx, resetTokensPath+"/"+token, &record)
	if err != nil {
		return fmt.Errorf("load reset token: %w", err)
	}
	if !found {
		return ErrInvalidResetToken
	}
	if time.Since(time.UnixMilli(record.CreatedAt)) > resetTokenTTL {
		_ = p.gw.Remove(ctx, resetTokensPath+"/"+token)
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = p.gw.Update(ctx, accountPath(record.UserID), map[string]interface{}{
		"passwordHash": string(hash),
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := p.gw.Remove(ctx, resetTokensPath+"/"+token); err != nil {
		p.log.Warn("Failed to consume reset token", zap.Error(err))
	}

	p.log.Info("Password reset completed", zap.String("user_id", record.UserID))
	return nil
}

func (p *GatewayProvider) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	return p.gw.Update(ctx, accountPath(userID), map[string]interface{}{
		"displayName": displayName,
	})
}

func (p *GatewayProvider) OnStateChanged(fn func(StateEvent)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	DisplayName string `json:"name"`
}

func (c sessionClaims) user() User {
	return User{ID: c.Subject, Email: c.Email, DisplayName: c.DisplayName}
}

func (p *GatewayProvider) issue(user User) (*Session, error) {
	expires := time.Now().Add(p.sessionTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{User: user, Token: token, ExpiresAt: expires}, nil
}

func (p *GatewayProvider) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *GatewayProvider) broadcast(ev StateEvent) {
	p.mu.Lock()
	handlers := make([]func(StateEvent), 0, len(p.handlers))
	for _, fn := range p.handlers {
		handlers = append(handlers, fn)
	}
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

func (p *GatewayProvider) pruneRevokedLocked() {
	now := time.Now()
	for jti, exp := range p.revoked {
		if exp.Before(now) {
			delete(p.revoked, jti)
		}
	}
}

func accountPath(userID string) string {
	return accountsPath + "/" + userID
}

// indexPath maps an email to a tree-safe key.
func indexPath(email string) string {
	sum := sha256.Sum256([]byte(email))
	return accountIndexPath + "/" + hex.EncodeToString(sum[:16])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Provider = (*GatewayProvider)(nil)
