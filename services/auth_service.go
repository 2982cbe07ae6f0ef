package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/utils"
)

// AuthConfig holds token lifetimes.
type AuthConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
}

// TokenPair is handed to clients after login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

// AuthService issues, refreshes and revokes JWTs.
type AuthService struct {
	members repository.MemberRepository
	jwt     *utils.JWTManager
	tokens  *utils.TokenStore
	cfg     AuthConfig
}

// NewAuthService creates an AuthService.
func NewAuthService(members repository.MemberRepository, jwt *utils.JWTManager, tokens *utils.TokenStore, cfg AuthConfig) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.RememberMeTTL < cfg.RefreshTTL {
		cfg.RememberMeTTL = 14 * 24 * time.Hour
	}
	return &AuthService{members: members, jwt: jwt, tokens: tokens, cfg: cfg}
}

// Login checks credentials and issues a token pair. Remember-me stretches the refresh token lifetime.
func (s *AuthService) Login(ctx context.Context, username, password string, rememberMe bool) (*TokenPair, *models.Member, error) {
	if username == "" || password == "" {
		return nil, nil, required("username and password")
	}
	m, err := s.members.FindByUsername(ctx, username, repository.Bool(false))
	if err != nil {
		return nil, nil, notFound(err, "member", username)
	}
	if !utils.CheckPassword(m.Password, password) {
		return nil, nil, ErrWrongPassword
	}
	pair, err := s.IssueFor(ctx, m, rememberMe)
	if err != nil {
		return nil, nil, err
	}
	return pair, m, nil
}

// IssueFor creates a token pair for an already authenticated member and stores the refresh token.
func (s *AuthService) IssueFor(ctx context.Context, m *models.Member, rememberMe bool) (*TokenPair, error) {
	access, accessExp, err := s.jwt.GenerateToken(m.ID, m.Username, string(m.Role), utils.AccessToken, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	ttl := s.cfg.RefreshTTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}
	refresh, refreshExp, err := s.jwt.GenerateToken(m.ID, m.Username, string(m.Role), utils.RefreshToken, ttl)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.SaveRefresh(ctx, m.Username, refresh, ttl); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		TokenType:        "Bearer",
	}, nil
}

// Refresh exchanges the current refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ParseToken(refreshToken)
	if err != nil || claims.Type != utils.RefreshToken {
		return nil, ErrInvalidToken
	}
	stored, ok, err := s.tokens.RefreshToken(ctx, claims.Username)
	if err != nil {
		return nil, err
	}
	if !ok || stored != refreshToken {
		return nil, ErrInvalidToken
	}
	m, err := s.members.FindByID(ctx, claims.UserID, repository.Bool(false))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	access, accessExp, err := s.jwt.GenerateToken(m.ID, m.Username, string(m.Role), utils.AccessToken, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	pair := &TokenPair{
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		RefreshToken:    refreshToken,
		TokenType:       "Bearer",
	}
	if claims.ExpiresAt != nil {
		pair.RefreshExpiresAt = claims.ExpiresAt.Time
	}
	return pair, nil
}

// Logout forgets the refresh token and blacklists the access token until it expires.
func (s *AuthService) Logout(ctx context.Context, username, accessToken string, expiresAt time.Time) error {
	if err := s.tokens.DeleteRefresh(ctx, username); err != nil {
		return err
	}
	if accessToken == "" {
		return nil
	}
	if err := s.tokens.Blacklist(ctx, accessToken, expiresAt); err != nil {
		utils.Logger.Warn("blacklist access token failed", zap.String("username", username), zap.Error(err))
		return err
	}
	return nil
}
