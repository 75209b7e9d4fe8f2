// api/store/funnel_store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"funnelscope/api/models"

	log "github.com/sirupsen/logrus"
)

// FunnelStore keeps funnel metadata in Postgres. Events reference funnels
// by id; the analytics side only uses this to label funnelId rows.
type FunnelStore struct {
	db *sql.DB
}

func NewFunnelStore(db *sql.DB) *FunnelStore {
	return &FunnelStore{db: db}
}

// CreateFunnel inserts a new funnel record.
func (s *FunnelStore) CreateFunnel(ctx context.Context, req models.CreateFunnelRequest) (*models.Funnel, error) {
	funnel := &models.Funnel{}
	query := `
		INSERT INTO funnels (id, name, domain, step_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, domain, step_count, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, req.ID, req.Name, req.Domain, req.StepCount).Scan(
		&funnel.ID,
		&funnel.Name,
		&funnel.Domain,
		&funnel.StepCount,
		&funnel.CreatedAt,
		&funnel.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return nil, fmt.Errorf("funnel with id '%s' already exists", req.ID)
		}
		return nil, fmt.Errorf("failed to create funnel: %w", err)
	}

	log.WithFields(log.Fields{"funnelId": funnel.ID, "name": funnel.Name}).Info("Funnel created")
	return funnel, nil
}

// GetFunnel fetches one funnel by id.
func (s *FunnelStore) GetFunnel(ctx context.Context, id string) (*models.Funnel, error) {
	funnel := &models.Funnel{}
	query := `
		SELECT id, name, domain, step_count, created_at, updated_at
		FROM funnels
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&funnel.ID,
		&funnel.Name,
		&funnel.Domain,
		&funnel.StepCount,
		&funnel.CreatedAt,
		&funnel.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("funnel with id '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get funnel: %w", err)
	}

	return funnel, nil
}

// ListFunnels returns all funnels, newest first.
func (s *FunnelStore) ListFunnels(ctx context.Context) ([]models.Funnel, error) {
	query := `
		SELECT id, name, domain, step_count, created_at, updated_at
		FROM funnels
		ORDER BY created_at DESC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}
	defer rows.Close()

	funnels := []models.Funnel{}
	for rows.Next() {
		var funnel models.Funnel
		if err := rows.Scan(
			&funnel.ID,
			&funnel.Name,
			&funnel.Domain,
			&funnel.StepCount,
			&funnel.CreatedAt,
			&funnel.UpdatedAt,
		); err != nil {
			log.WithError(err).Error("Error scanning funnel row")
			continue
		}
		funnels = append(funnels, funnel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during funnels query: %w", err)
	}

	return funnels, nil
}
