package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/store"
)

const rolesClaim = "roles"

// Service issues and validates access tokens for register accounts.
type Service struct {
	store    store.Store
	secret   []byte
	signer   jwa.SignatureAlgorithm
	issuer   string
	tokenTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// Config groups Service dependencies.
type Config struct {
	Store    store.Store
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	Logger   zerolog.Logger
}

// NewService constructs the auth service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "backend-pos"
	}
	return &Service{
		store:    cfg.Store,
		secret:   []byte(cfg.Secret),
		signer:   jwa.HS256,
		issuer:   issuer,
		tokenTTL: ttl,
		logger:   cfg.Logger,
		now:      time.Now,
	}, nil
}

// Session is the login response payload.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      store.User `json:"user"`
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, invalidCredentials()
		}
		return Session{}, err
	}
	ok, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		s.logger.Error().Err(err).Str("user", user.ID).Msg("password hash comparison")
		return Session{}, invalidCredentials()
	}
	if !ok {
		return Session{}, invalidCredentials()
	}
	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string, roles []string) (store.User, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return store.User{}, err
	}
	user, err := s.store.CreateUser(ctx, store.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.User{}, &common.AppError{HTTPStatus: http.StatusConflict, Code: "EMAIL_ALREADY_USED", Message: "email already registered"}
		}
		return store.User{}, err
	}
	return user, nil
}

// Me loads the account for an authenticated user id.
func (s *Service) Me(ctx context.Context, userID string) (store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, &common.AppError{HTTPStatus: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "account no longer exists"}
		}
		return store.User{}, err
	}
	return user, nil
}

// ParseAccessToken validates a token and returns the subject and roles.
func (s *Service) ParseAccessToken(token string) (string, []string, error) {
	parsed, err := jwt.ParseString(strings.TrimSpace(token),
		jwt.WithKey(s.signer, s.secret),
		jwt.WithIssuer(s.issuer),
		jwt.WithValidate(true),
	)
	if err != nil {
		return "", nil, &common.AppError{HTTPStatus: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "invalid or expired token", Err: err}
	}
	subject := parsed.Subject()
	if subject == "" {
		return "", nil, &common.AppError{HTTPStatus: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "token missing subject"}
	}
	var roles []string
	if raw, ok := parsed.Get(rolesClaim); ok {
		switch v := raw.(type) {
		case []string:
			roles = v
		case []any:
			for _, item := range v {
				if role, ok := item.(string); ok {
					roles = append(roles, role)
				}
			}
		}
	}
	return subject, roles, nil
}

func (s *Service) issueToken(user store.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(user.ID).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim(rolesClaim, user.Roles).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return string(signed), expiresAt, nil
}

func invalidCredentials() error {
	return &common.AppError{HTTPStatus: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "email or password is incorrect"}
}
