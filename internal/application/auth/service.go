package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rezkam/taskhub/internal/domain"
)

const (
	// DefaultTokenTTL is the token lifetime when none is configured.
	DefaultTokenTTL = 30 * 24 * time.Hour

	// minPasswordLength is enforced at signup.
	minPasswordLength = 8

	claimsCacheSize = 1000
	claimsCacheTTL  = 5 * time.Minute
)

// Claims are the JWT claims minted at signup/login.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// cachedClaims holds verified claims with the instant they were cached.
type cachedClaims struct {
	claims   *Claims
	cachedAt time.Time
}

// Service handles signup, login, and token verification. Verified
// claims are held in a small LRU with a short TTL so the hot auth path
// skips signature checks for repeated requests.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	secret   []byte
	tokenTTL time.Duration
	cache    *lru.Cache[string, cachedClaims]
	now      func() time.Time
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an auth service. secret must be non-empty; the
// caller is expected to fail startup when it is missing.
func NewService(repo Repository, hasher PasswordHasher, secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}

	cache, err := lru.New[string, cachedClaims](claimsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create claims cache: %w", err)
	}

	s := &Service{
		repo:     repo,
		hasher:   hasher,
		secret:   secret,
		tokenTTL: DefaultTokenTTL,
		cache:    cache,
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Credentials is the signup/login input.
type Credentials struct {
	Email    string
	Password string
}

// Session is the result of a successful signup or login.
type Session struct {
	User  *domain.User
	Token string
}

// Signup registers a new user and returns a minted session. A duplicate
// email surfaces as domain.ErrConflict from the repository.
func (s *Service) Signup(ctx context.Context, creds Credentials) (*Session, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return nil, err
	}
	if len(creds.Password) < minPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	user := &domain.User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.mintToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// Login verifies credentials and returns a minted session. Both an
// unknown email and a wrong password surface as ErrUnauthorized so the
// response never reveals which one failed.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	if err := s.hasher.Compare(user.PasswordHash, creds.Password); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := s.mintToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// Me returns the user record for a verified identity.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Verify validates a token and returns its claims. Results are cached
// for a short window keyed by the raw token string.
func (s *Service) Verify(_ context.Context, tokenString string) (*Claims, error) {
	now := s.now()
	if entry, ok := s.cache.Get(tokenString); ok {
		if now.Sub(entry.cachedAt) < claimsCacheTTL &&
			entry.claims.ExpiresAt != nil && entry.claims.ExpiresAt.After(now) {
			return entry.claims, nil
		}
		s.cache.Remove(tokenString)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	s.cache.Add(tokenString, cachedClaims{claims: claims, cachedAt: now})
	return claims, nil
}

// mintToken signs an HS256 token for the user.
func (s *Service) mintToken(user *domain.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
