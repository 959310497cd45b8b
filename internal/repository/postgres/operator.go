package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
)

type operatorRepository struct {
	BaseRepository
}

func NewOperatorRepository(base BaseRepository) repository.OperatorRepository {
	return &operatorRepository{base}
}

func (r *operatorRepository) Create(ctx context.Context, operator *model.Operator) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO operators (id, email, name, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		operator.ID, operator.Email, operator.Name, operator.PasswordHash,
		operator.Active, operator.CreatedAt, operator.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

func (r *operatorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	var operator model.Operator
	err := r.db.GetContext(ctx, &operator,
		`SELECT * FROM operators WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &operator, nil
}

func (r *operatorRepository) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	var operator model.Operator
	err := r.db.GetContext(ctx, &operator,
		`SELECT * FROM operators WHERE email = $1 AND active = true`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get operator by email: %w", err)
	}
	return &operator, nil
}
