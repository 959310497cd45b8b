package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
)

type credentialRepository struct {
	BaseRepository
}

func NewCredentialRepository(base BaseRepository) repository.CredentialRepository {
	return &credentialRepository{base}
}

const credentialColumns = `id, incident_id, access_code, valid_until, max_personnel, active, created_at, created_by`

func (r *credentialRepository) IssueExclusive(ctx context.Context, cred *model.AccessCredential) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Serialize concurrent issue/regenerate for the same incident on the
		// incident row.
		var incidentID string
		err := tx.GetContext(ctx, &incidentID,
			`SELECT id FROM incidents WHERE id = $1 FOR UPDATE`, cred.IncidentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("incident %s: %w", cred.IncidentID, repository.ErrNotFound)
			}
			return fmt.Errorf("failed to lock incident: %w", err)
		}

		var exists bool
		err = tx.GetContext(ctx, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM access_credentials
				WHERE incident_id = $1 AND active = true AND valid_until > $2
			)`, cred.IncidentID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to check active credential: %w", err)
		}
		if exists {
			return repository.ErrConflict
		}

		return insertCredential(ctx, tx, cred)
	})
}

func (r *credentialRepository) Rotate(ctx context.Context, oldID uuid.UUID, newCred *model.AccessCredential) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var incidentID string
		err := tx.GetContext(ctx, &incidentID,
			`SELECT id FROM incidents WHERE id = $1 FOR UPDATE`, newCred.IncidentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("incident %s: %w", newCred.IncidentID, repository.ErrNotFound)
			}
			return fmt.Errorf("failed to lock incident: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE access_credentials
			SET active = false
			WHERE id = $1 AND incident_id = $2 AND active = true`,
			oldID, newCred.IncidentID)
		if err != nil {
			return fmt.Errorf("failed to deactivate credential: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}

		return insertCredential(ctx, tx, newCred)
	})
}

func insertCredential(ctx context.Context, tx *sqlx.Tx, cred *model.AccessCredential) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO access_credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cred.ID, cred.IncidentID, cred.AccessCode, cred.ValidUntil,
		cred.MaxPersonnel, cred.Active, cred.CreatedAt, cred.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

func (r *credentialRepository) Get(ctx context.Context, id uuid.UUID) (*model.AccessCredential, error) {
	var cred model.AccessCredential
	err := r.db.GetContext(ctx, &cred,
		`SELECT `+credentialColumns+` FROM access_credentials WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

func (r *credentialRepository) GetActiveByCode(ctx context.Context, code string, now time.Time) (*model.AccessCredential, error) {
	var cred model.AccessCredential
	err := r.db.GetContext(ctx, &cred, `
		SELECT `+credentialColumns+`
		FROM access_credentials
		WHERE access_code = $1 AND active = true AND valid_until > $2`,
		code, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve access code: %w", err)
	}
	return &cred, nil
}

func (r *credentialRepository) GetActiveByIncident(ctx context.Context, incidentID string, now time.Time) (*model.AccessCredential, error) {
	var cred model.AccessCredential
	err := r.db.GetContext(ctx, &cred, `
		SELECT `+credentialColumns+`
		FROM access_credentials
		WHERE incident_id = $1 AND active = true AND valid_until > $2`,
		incidentID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active credential: %w", err)
	}
	return &cred, nil
}

func (r *credentialRepository) CodeActive(ctx context.Context, code string, now time.Time) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM access_credentials
			WHERE access_code = $1 AND active = true AND valid_until > $2
		)`, code, now)
	if err != nil {
		return false, fmt.Errorf("failed to check access code: %w", err)
	}
	return exists, nil
}

func (r *credentialRepository) AppendPersonnel(ctx context.Context, credentialID uuid.UUID, record *model.PersonRecord) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var cred struct {
			IncidentID   string `db:"incident_id"`
			MaxPersonnel *int   `db:"max_personnel"`
		}
		err := tx.GetContext(ctx, &cred, `
			SELECT incident_id, max_personnel
			FROM access_credentials
			WHERE id = $1
			FOR UPDATE`, credentialID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to lock credential: %w", err)
		}

		if cred.MaxPersonnel != nil {
			var count int
			err := tx.GetContext(ctx, &count,
				`SELECT COUNT(*) FROM personnel WHERE credential_id = $1`, credentialID)
			if err != nil {
				return fmt.Errorf("failed to count personnel: %w", err)
			}
			if count >= *cred.MaxPersonnel {
				return repository.ErrCapacityExceeded
			}
		}

		record.CredentialID = &credentialID
		record.IncidentID = cred.IncidentID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO personnel (
				id, incident_id, credential_id, nombre, apellido, dni, telefono,
				institucion, rol, sexo, alergias, grupo_sanguineo, estado,
				is_leader, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			record.ID, record.IncidentID, record.CredentialID, record.Nombre,
			record.Apellido, record.DNI, record.Telefono, record.Institucion,
			record.Rol, record.Sexo, record.Alergias, record.GrupoSanguineo,
			record.Estado, record.IsLeader, record.CreatedAt, record.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert person record: %w", err)
		}
		return nil
	})
}

func (r *credentialRepository) ListPersonnel(ctx context.Context, credentialID uuid.UUID) ([]*model.PersonRecord, error) {
	var records []*model.PersonRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM personnel
		WHERE credential_id = $1
		ORDER BY created_at ASC`, credentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credential personnel: %w", err)
	}
	return records, nil
}
