package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// PresetRepository defines the interface for preset data access
type PresetRepository interface {
	GetPreset(ctx context.Context, owner string) (*domain.Preset, error)
	SavePreset(ctx context.Context, owner string, preset domain.Preset) error
}

// PostgresPresetRepository implements PresetRepository for PostgreSQL
type PostgresPresetRepository struct {
	db *sql.DB
}

// NewPostgresPresetRepository creates a new PostgreSQL preset repository
func NewPostgresPresetRepository(db *sql.DB) *PostgresPresetRepository {
	return &PostgresPresetRepository{db: db}
}

// GetPreset retrieves the preset of owner, or nil when there is none
func (r *PostgresPresetRepository) GetPreset(ctx context.Context, owner string) (*domain.Preset, error) {
	query := `
		SELECT preset
		FROM watermark_presets
		WHERE owner = $1
	`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, owner).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preset: %w", err)
	}

	var preset domain.Preset
	if err := json.Unmarshal(raw, &preset); err != nil {
		return nil, fmt.Errorf("failed to decode preset: %w", err)
	}
	return &preset, nil
}

// SavePreset inserts or replaces the preset of owner
func (r *PostgresPresetRepository) SavePreset(ctx context.Context, owner string, preset domain.Preset) error {
	raw, err := json.Marshal(preset)
	if err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}

	query := `
		INSERT INTO watermark_presets (owner, preset, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner) DO UPDATE
		SET preset = EXCLUDED.preset, updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, owner, raw, time.Now())
	return err
}
