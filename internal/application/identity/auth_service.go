// Package identity handles dashboard login sessions.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cashflow/backend/internal/domain/identity"
	"github.com/cashflow/backend/internal/domain/shared"
	"github.com/cashflow/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Session errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	ErrAccountLocked      = shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Please try again later")
	ErrTokenExpired       = shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	ErrTokenInvalid       = shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	ErrTokenMaxRefresh    = shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	ErrInternal           = shared.NewDomainError("INTERNAL_ERROR", "Internal server error")
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum consecutive failures before a lock, 0 disables locking
	LockDuration     time.Duration // How long a locked username stays locked
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles authentication operations
type AuthService struct {
	users      identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	config     AuthServiceConfig
	logger     *zap.Logger

	mu       sync.Mutex
	attempts map[string]*identity.LoginAttempts
	now      func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		blacklist:  blacklist,
		config:     config,
		logger:     logger,
		attempts:   make(map[string]*identity.LoginAttempts),
		now:        time.Now,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := identity.NormalizeUsername(input.Username)
	log := s.logger.With(zap.String("username", username), zap.String("ip", input.IP))
	log.Info("Login attempt")

	if s.isLocked(username) {
		log.Warn("Login attempt for locked account")
		return nil, ErrAccountLocked
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		log.Error("Credentials lookup failed", zap.Error(err))
		return nil, ErrInternal
	}
	if user == nil || !user.VerifyPassword(input.Password) {
		// Unknown usernames count as failures too.
		if s.recordFailure(username) {
			log.Warn("Account locked after too many failed attempts", zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, ErrAccountLocked
		}
		log.Warn("Invalid credentials")
		return nil, ErrInvalidCredentials
	}
	s.clearFailures(username)

	pair, err := s.jwtService.GenerateTokenPair(subjectOf(user))
	if err != nil {
		log.Error("Failed to generate token pair", zap.Error(err))
		return nil, ErrInternal
	}

	log.Info("User logged in successfully")
	return &LoginResult{TokenResult: toTokenResult(pair), User: toUserInfo(user)}, nil
}

// RefreshToken trades a refresh token for a new pair. The account must still
// exist in the credentials file.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	if revoked, err := s.isRevoked(ctx, claims.ID); err != nil {
		return nil, ErrInternal
	} else if revoked {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.FindByUsername(ctx, claims.Username)
	if err != nil {
		s.logger.Warn("Token refresh for unknown user", zap.String("username", claims.Username), zap.Error(err))
		return nil, ErrTokenInvalid
	}

	pair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, subjectOf(user))
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	// The old refresh token is single use.
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke used refresh token", zap.Error(err))
	}

	s.logger.Info("Token refreshed successfully", zap.String("username", user.Username))
	result := toTokenResult(pair)
	return &result, nil
}

// Logout revokes the access token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	s.logger.Info("User logout", zap.String("username", input.Username))
	if input.TokenJTI == "" {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL); err != nil {
		s.logger.Error("Failed to blacklist token on logout", zap.Error(err))
		return ErrInternal
	}
	return nil
}

// GetCurrentUser returns the profile of a logged in user
func (s *AuthService) GetCurrentUser(ctx context.Context, username string) (*UserInfo, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, ErrInternal
	}
	info := toUserInfo(user)
	return &info, nil
}

// ValidateAccessToken checks signature, expiry and revocation of an access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, auth.ErrTokenBlacklisted
	}
	return claims, nil
}

func (s *AuthService) isRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := s.blacklist.IsBlacklisted(ctx, jti)
	if err != nil {
		s.logger.Error("Token blacklist check failed", zap.Error(err))
		return false, err
	}
	return revoked, nil
}

func (s *AuthService) isLocked(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[username]
	return ok && a.IsLocked(s.now())
}

func (s *AuthService) recordFailure(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneAttempts(now)
	a, ok := s.attempts[username]
	if !ok {
		a = &identity.LoginAttempts{}
		s.attempts[username] = a
	}
	return a.RecordFailure(now, s.config.MaxLoginAttempts, s.config.LockDuration)
}

// pruneAttempts drops unlocked records whose last failure is older than the
// lock duration. Caller holds s.mu.
func (s *AuthService) pruneAttempts(now time.Time) {
	for username, a := range s.attempts {
		if a.Expired(now, s.config.LockDuration) {
			delete(s.attempts, username)
		}
	}
}

func (s *AuthService) clearFailures(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, username)
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return ErrTokenMaxRefresh
	default:
		return ErrTokenInvalid
	}
}

func subjectOf(u *identity.User) auth.Subject {
	return auth.Subject{Username: u.Username, Name: u.Name, Email: u.Email}
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{Username: u.Username, DisplayName: u.DisplayName(), Email: u.Email}
}

func toTokenResult(p *auth.TokenPair) TokenResult {
	return TokenResult{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: p.RefreshTokenExpiresAt,
		TokenType:             p.TokenType,
	}
}
