package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/store"
)

const defaultAccessTTL = time.Hour

type queryProvider interface {
	CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (store.User, error)
}

// Service registers households and issues access tokens.
type Service struct {
	queries   queryProvider
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	validator TokenValidator
}

// Config configures the auth service.
type Config struct {
	Queries        queryProvider
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// User is the client-facing view of an account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResult carries the access token issued on login.
type LoginResult struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_token_expires_at"`
}

// NewService validates cfg and fills defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("auth: queries is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-grocer"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "grocer-app"
	}
	skew := cfg.ClockSkew
	if skew < 0 {
		skew = 0
	}
	return &Service{
		queries:   cfg.Queries,
		secret:    []byte(secret),
		accessTTL: ttl,
		now:       time.Now,
		validator: TokenValidator{Issuer: issuer, Audience: audience, ClockSkew: skew, Algorithm: jwa.HS256},
	}, nil
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register creates an account. Emails are stored lower-cased and must be unique.
func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return User{}, common.BadRequest("name", "name is required", nil)
	}
	if email == "" {
		return User{}, common.BadRequest("email", "email is required", nil)
	}
	if len(password) < 8 {
		return User{}, common.BadRequest("password", "password must be at least 8 characters", nil)
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.queries.CreateUser(ctx, store.CreateUserParams{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, common.NewAppError("EMAIL_ALREADY_USED", "email is already registered", http.StatusConflict, err)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return toUser(created), nil
}

// Login verifies credentials and signs an access token. Unknown emails and
// wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, errInvalidCredentials()
	}
	u, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, errInvalidCredentials()
	}
	ok, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, errInvalidCredentials()
	}

	userID := store.UUIDString(u.ID)
	if userID == "" {
		return LoginResult{}, errors.New("auth: invalid user identifier")
	}
	token, expiry, err := s.signAccessToken(userID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{User: toUser(u), AccessToken: token, AccessExpiry: expiry}, nil
}

// Me loads the account behind an authenticated user ID.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	id, err := store.ToUUID(userID)
	if err != nil {
		return User{}, errUnauthorized("unauthorized", err)
	}
	u, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		return User{}, errUnauthorized("unauthorized", err)
	}
	return toUser(u), nil
}

func toUser(u store.User) User {
	out := User{ID: store.UUIDString(u.ID), Name: u.Name, Email: u.Email}
	if u.CreatedAt.Valid {
		out.CreatedAt = u.CreatedAt.Time
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func errInvalidCredentials() *common.AppError {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func errUnauthorized(message string, err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}
