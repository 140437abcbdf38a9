package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowmate/flowmate/pkg/models"
)

// MetricRepository appends system usage samples to a single JSONL file.
type MetricRepository struct {
	root string
	mu   sync.Mutex
}

// NewMetricRepository creates a new metric repository.
func NewMetricRepository(root string) *MetricRepository {
	return &MetricRepository{root: root}
}

func (mr *MetricRepository) samplesPath() string {
	return filepath.Join(mr.root, "metrics.jsonl")
}

// RecordSample appends one sample, stamping ID and RecordedAt when empty.
func (mr *MetricRepository) RecordSample(_ context.Context, sample *models.MetricSample) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}

	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}

	err := os.MkdirAll(mr.root, 0750)
	if err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	line, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal metric sample %s: %w", sample.ID, err)
	}

	file, err := os.OpenFile(mr.samplesPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open metric samples file: %w", err)
	}

	_, err = file.Write(append(line, '\n'))
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("failed to append metric sample: %w", err)
	}

	return file.Close()
}

// Recent returns up to limit samples, newest first.
func (mr *MetricRepository) Recent(_ context.Context, limit int) ([]*models.MetricSample, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	file, err := os.Open(mr.samplesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.MetricSample{}, nil
		}

		return nil, fmt.Errorf("failed to open metric samples file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	samples := make([]*models.MetricSample, 0)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var sample models.MetricSample

		err := json.Unmarshal(line, &sample)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal metric sample: %w", err)
		}

		samples = append(samples, &sample)
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read metric samples file: %w", err)
	}

	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}

	if limit > 0 && len(samples) > limit {
		samples = samples[:limit]
	}

	return samples, nil
}
