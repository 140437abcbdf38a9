package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowmate/flowmate/pkg/models"
)

// MetricRepository stores system usage samples in the metric_samples table.
type MetricRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMetricRepository creates a new metric repository.
func NewMetricRepository(db *sql.DB, logger *slog.Logger) *MetricRepository {
	return &MetricRepository{db: db, logger: logger}
}

// RecordSample appends one sample, stamping ID and RecordedAt when empty.
func (r *MetricRepository) RecordSample(ctx context.Context, sample *models.MetricSample) error {
	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}

	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO metric_samples (id, cpu_percent, memory_percent, recorded_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		sample.ID,
		sample.CPUPercent,
		sample.MemoryPercent,
		sample.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record metric sample: %w", err)
	}

	return nil
}

// Recent returns up to limit samples, newest first. A non-positive limit
// returns all samples.
func (r *MetricRepository) Recent(ctx context.Context, limit int) ([]*models.MetricSample, error) {
	query := `
		SELECT id, cpu_percent, memory_percent, recorded_at
		FROM metric_samples
		ORDER BY seq DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query metric samples: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	samples := make([]*models.MetricSample, 0)

	for rows.Next() {
		var sample models.MetricSample

		err := rows.Scan(
			&sample.ID,
			&sample.CPUPercent,
			&sample.MemoryPercent,
			&sample.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric sample: %w", err)
		}

		samples = append(samples, &sample)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating metric samples: %w", err)
	}

	return samples, nil
}
