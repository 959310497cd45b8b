package auth

import (
	"context"
	"fmt"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
	"github.com/sarops/incident-api/pkg/auth"
	apperrors "github.com/sarops/incident-api/pkg/errors"
	"github.com/sarops/incident-api/pkg/security"
)

type Service struct {
	repo   repository.OperatorRepository
	tokens *auth.TokenManager
	hasher security.PasswordHasher
}

func NewService(repo repository.OperatorRepository, tokens *auth.TokenManager, hasher security.PasswordHasher) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
	}
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	operator, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil || !operator.Active {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	if err := s.hasher.Compare(operator.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	token, err := s.tokens.Generate(operator.ID, operator.Email)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	return &model.LoginResponse{
		Token:    token,
		Operator: operator,
	}, nil
}

func (s *Service) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
