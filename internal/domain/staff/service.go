package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtour/caseflow/internal/platform/auth"
)

var (
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUsernameTaken      = errors.New("username is already taken")
)

// Service manages operator accounts and issues the service's tokens.
type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
	logger zerolog.Logger
}

func NewService(repo Repository, issuer *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, logger: logger}
}

// Login checks credentials and returns a fresh token pair. Failures are
// deliberately indistinguishable between a missing user and a bad password.
func (s *Service) Login(ctx context.Context, username, password string) (*auth.TokenPair, *Operator, error) {
	op, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrOperatorNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if !auth.CheckPassword(op.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !op.Active {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issuer.Issue(op.ID.String(), op.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}
	s.logger.Info().Str("operator_id", op.ID.String()).Str("username", op.Username).Msg("operator logged in")
	return pair, op, nil
}

// Refresh rotates a valid refresh token into a new pair. The operator must
// still exist and be active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	op, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrOperatorNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !op.Active {
		return nil, ErrAccountDisabled
	}
	return s.issuer.Issue(op.ID.String(), op.Role)
}

// CreateInput carries the fields for a new operator account.
type CreateInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (s *Service) CreateOperator(ctx context.Context, in CreateInput) (*Operator, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if in.Role != auth.RoleOperator && in.Role != auth.RoleAdmin {
		in.Role = auth.RoleOperator
	}
	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrOperatorNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	op := &Operator{
		ID:           uuid.New(),
		Username:     in.Username,
		FullName:     in.FullName,
		Role:         in.Role,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.repo.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *Service) GetOperator(ctx context.Context, id uuid.UUID) (*Operator, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListOperators(ctx context.Context) ([]*Operator, error) {
	return s.repo.List(ctx)
}

// UpdateInput carries partial operator updates. Nil fields are untouched.
type UpdateInput struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
	Active   *bool   `json:"active"`
}

func (s *Service) UpdateOperator(ctx context.Context, id uuid.UUID, in UpdateInput) (*Operator, error) {
	op, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		op.FullName = *in.FullName
	}
	if in.Role != nil {
		if *in.Role != auth.RoleOperator && *in.Role != auth.RoleAdmin {
			return nil, fmt.Errorf("unknown role %q", *in.Role)
		}
		op.Role = *in.Role
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return nil, fmt.Errorf("password must be at least 8 characters")
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		op.PasswordHash = hash
	}
	if in.Active != nil {
		op.Active = *in.Active
	}
	if err := s.repo.Update(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *Service) DeleteOperator(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
