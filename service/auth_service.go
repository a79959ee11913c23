package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sardraft-backend/authz"
	"sardraft-backend/models"
)

const tokenLifetime = 8 * time.Hour

// AuthService handles login and user administration. Authentication
// attempts land on the system audit chain.
type AuthService struct {
	users     UserStore
	audit     *AuditService
	jwtSecret []byte
	logger    *zap.Logger
}

// AuthServiceOption is a functional option for AuthService
type AuthServiceOption func(*AuthService)

// AuthWithUserStore sets the user store
func AuthWithUserStore(store UserStore) AuthServiceOption {
	return func(s *AuthService) {
		s.users = store
	}
}

// AuthWithAudit sets the audit service
func AuthWithAudit(audit *AuditService) AuthServiceOption {
	return func(s *AuthService) {
		s.audit = audit
	}
}

// AuthWithJWTSecret sets the token signing secret
func AuthWithJWTSecret(secret []byte) AuthServiceOption {
	return func(s *AuthService) {
		s.jwtSecret = secret
	}
}

// AuthWithLogger sets the logger
func AuthWithLogger(logger *zap.Logger) AuthServiceOption {
	return func(s *AuthService) {
		s.logger = logger
	}
}

// NewAuthService creates a new auth service
func NewAuthService(opts ...AuthServiceOption) *AuthService {
	s := &AuthService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login verifies credentials and issues a signed token. Both outcomes are
// recorded on the system chain; failures do not reveal which check failed.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if s.users == nil {
		return nil, errors.New("user store not set")
	}
	if len(s.jwtSecret) == 0 {
		return nil, errors.New("jwt secret not set")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.Active {
		s.recordLogin(ctx, username, false, "unknown or inactive user")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordLogin(ctx, username, false, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := models.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}
	s.recordLogin(ctx, username, true, "")
	lastLogin := now
	user.LastLogin = &lastLogin

	return &LoginResult{Token: token, User: user}, nil
}

// ParseToken validates a signed token and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// CreateUserRequest carries the inputs for user creation.
type CreateUserRequest struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     models.Role
}

// CreateUser provisions a new user. Admin only.
func (s *AuthService) CreateUser(ctx context.Context, actor models.Actor, req CreateUserRequest) (*models.User, error) {
	if err := authz.Authorize(actor, authz.ActionManageUsers, authz.DomainUser); err != nil {
		var denied *authz.Error
		if errors.As(err, &denied) && s.audit != nil {
			s.audit.RecordDenied(ctx, nil, actor, denied)
		}
		return nil, err
	}
	if req.Username == "" || req.Password == "" {
		return nil, errors.New("username and password are required")
	}
	if !models.ValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role: %s", req.Role)
	}

	existing, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	return user, nil
}

func (s *AuthService) recordLogin(ctx context.Context, username string, success bool, reason string) {
	if s.audit == nil {
		return
	}
	kind := models.EventLogin
	if !success {
		kind = models.EventLoginFailed
	}
	if err := s.audit.Record(ctx, nil, username, kind, models.LoginPayload{
		Username: username,
		Reason:   reason,
	}); err != nil {
		s.logger.Warn("failed to record login event", zap.Error(err))
	}
}
