package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const otelName = "github.com/s1natex/tasktracker-api/internal/auth"

var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Length(0, 100)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		// bcrypt ignores everything past 72 bytes
		validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
	)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Service struct {
	repo   UserRepository
	hasher *PasswordHasher
	tokens *TokenManager
	now    func() time.Time
}

func NewService(repo UserRepository, hasher *PasswordHasher, tokens *TokenManager) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens, now: time.Now}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Auth.Register")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return Session{}, err
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return Session{}, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return Session{}, fmt.Errorf("find user by email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Auth.Login")
	defer span.End()

	in.Email = NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return Session{}, err
	}

	u, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("find user by email: %w", err)
	}
	if !s.hasher.Verify(in.Password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

// ResolveCaller turns a bearer token into the caller's identity. The user must still exist.
func (s *Service) ResolveCaller(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return Identity{}, err
	}
	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, fmt.Errorf("find user by id: %w", err)
	}
	return Identity{UserID: u.ID, Email: u.Email}, nil
}

func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) session(u User) (Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: u}, nil
}
