package service

import (
	"context"
	"fmt"
	"time"

	"farmmarket/internal/models"
	"farmmarket/internal/redisclient"
	"farmmarket/internal/store"
	"farmmarket/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   string
}

// AuthService handles registration, login, and session resolution. Every
// role goes through the same bcrypt verification path.
type AuthService struct {
	store      *store.Store
	sessions   *redisclient.Client
	logger     *zap.Logger
	sessionTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(st *store.Store, sessions *redisclient.Client, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		store:      st,
		sessions:   sessions,
		logger:     util.GetLogger(),
		sessionTTL: sessionTTL,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates a buyer or farmer account. Admin accounts are provisioned
// out of band, never through self-registration.
func (as *AuthService) Register(ctx context.Context, username, email, password, role string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password are required")
	}
	if role != models.RoleBuyer && role != models.RoleFarmer {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	existing, err := as.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storageFault(err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := as.store.CreateUser(ctx, user); err != nil {
		return nil, storageFault(err)
	}

	as.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role))
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown accounts
// and wrong passwords are indistinguishable to the caller.
func (as *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := as.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, storageFault(err)
	}
	if user == nil || !checkPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.New().String()
	if err := as.sessions.SaveSession(ctx, token, user.ID, user.Role, as.sessionTTL); err != nil {
		return "", nil, storageFault(err)
	}

	util.SessionsIssuedTotal.Inc()
	as.logger.Info("User logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role))
	return token, user, nil
}

// Authenticate resolves a session token to a principal
func (as *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	userID, role, found, err := as.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, storageFault(err)
	}
	if !found {
		return nil, ErrNoSession
	}
	return &Principal{UserID: userID, Role: role}, nil
}

// Logout invalidates a session token
func (as *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return as.sessions.DeleteSession(ctx, token)
}
