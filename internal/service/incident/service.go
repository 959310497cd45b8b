package incident

import (
	"context"
	"errors"
	"time"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
	apperrors "github.com/sarops/incident-api/pkg/errors"
)

type Service struct {
	repo repository.IncidentRepository
}

func NewService(repo repository.IncidentRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req *model.CreateIncidentRequest) (*model.Incident, error) {
	now := time.Now()
	incident := &model.Incident{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.IncidentStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, apperrors.Internal(err)
	}
	return incident, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Incident, error) {
	incident, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("incident", err)
		}
		return nil, apperrors.Internal(err)
	}
	return incident, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Incident, error) {
	return s.repo.List(ctx)
}
