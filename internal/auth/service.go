package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

const doctorNamePrefix = "Dr. "

// DoctorRegistrar links a doctor account to a bookable doctor record.
type DoctorRegistrar interface {
	EnsureDoctor(ctx context.Context, name, ownerEmail string) error
}

// DoctorRegistrarFunc adapts a function to DoctorRegistrar.
type DoctorRegistrarFunc func(ctx context.Context, name, ownerEmail string) error

// EnsureDoctor calls f.
func (f DoctorRegistrarFunc) EnsureDoctor(ctx context.Context, name, ownerEmail string) error {
	return f(ctx, name, ownerEmail)
}

// LoginRequest is the POST /login body. Unknown emails are registered.
type LoginRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResult carries the issued token.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Principal   Principal `json:"user"`
}

// Service verifies or registers users and issues tokens.
type Service struct {
	users   UserRepository
	doctors DoctorRegistrar
	tokens  *TokenIssuer
	logger  *logging.Logger
	cost    int
	now     func() time.Time
}

// NewService wires the login flow. doctors may be nil.
func NewService(users UserRepository, doctors DoctorRegistrar, tokens *TokenIssuer, logger *logging.Logger) *Service {
	if users == nil {
		panic("auth: user repository required")
	}
	if tokens == nil {
		panic("auth: token issuer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		users:   users,
		doctors: doctors,
		tokens:  tokens,
		logger:  logger,
		cost:    bcrypt.DefaultCost,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies an existing account or registers a new one, then issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
	case errors.Is(err, ErrUserNotFound):
		user, err = s.register(ctx, email, req)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("auth: load user: %w", err)
	}

	principal := Principal{Email: user.Email, Role: user.Role, Name: user.Name}
	token, expires, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expires,
		Principal:   principal,
	}, nil
}

func (s *Service) register(ctx context.Context, email string, req LoginRequest) (*User, error) {
	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         DisplayName(req.Name, email, role),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	s.logger.Info("user registered", "email", user.Email, "role", user.Role)

	if role == RoleDoctor && s.doctors != nil {
		if err := s.doctors.EnsureDoctor(ctx, user.Name, user.Email); err != nil {
			s.logger.Warn("doctor record not created", "email", user.Email, "name", user.Name, "error", err)
		}
	}
	return user, nil
}

// DisplayName picks the stored name: the given name or the email's local part,
// with "Dr. " prepended for doctors that lack it.
func DisplayName(name, email string, role Role) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if role == RoleDoctor && !strings.HasPrefix(strings.ToLower(name), "dr.") {
		name = doctorNamePrefix + name
	}
	return name
}
