package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
)

// SaveMapping upserts a learned merchant mapping and appends to the
// correction history.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, mapping *model.MerchantMapping) error {
	if mapping == nil || mapping.Merchant == "" {
		return fmt.Errorf("mapping merchant must not be empty")
	}
	if mapping.Category == "" {
		return fmt.Errorf("mapping category must not be empty")
	}
	if mapping.LastUpdated.IsZero() {
		mapping.LastUpdated = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mappings (merchant, category, source, last_updated, use_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(merchant) DO UPDATE SET
			category = excluded.category,
			source = excluded.source,
			last_updated = excluded.last_updated,
			use_count = excluded.use_count
	`, mapping.Merchant, mapping.Category, string(mapping.Source), mapping.LastUpdated, mapping.UseCount)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO corrections (merchant, category) VALUES (?, ?)
	`, mapping.Merchant, mapping.Category)
	if err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}

	return tx.Commit()
}

// GetMapping retrieves a learned mapping by merchant key.
func (s *SQLiteStorage) GetMapping(ctx context.Context, merchant string) (*model.MerchantMapping, error) {
	if merchant == "" {
		return nil, fmt.Errorf("merchant must not be empty")
	}

	var mapping model.MerchantMapping
	var source string
	err := s.db.QueryRowContext(ctx, `
		SELECT merchant, category, source, last_updated, use_count
		FROM mappings
		WHERE merchant = ?
	`, merchant).Scan(
		&mapping.Merchant,
		&mapping.Category,
		&source,
		&mapping.LastUpdated,
		&mapping.UseCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	mapping.Source = model.MappingSource(source)

	return &mapping, nil
}

// ListMappings retrieves all learned mappings ordered by merchant.
func (s *SQLiteStorage) ListMappings(ctx context.Context) ([]model.MerchantMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT merchant, category, source, last_updated, use_count
		FROM mappings
		ORDER BY merchant
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.MerchantMapping
	for rows.Next() {
		var mapping model.MerchantMapping
		var source string
		if err := rows.Scan(
			&mapping.Merchant,
			&mapping.Category,
			&source,
			&mapping.LastUpdated,
			&mapping.UseCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mapping.Source = model.MappingSource(source)
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mappings: %w", err)
	}

	return mappings, nil
}

// DeleteMapping removes a learned mapping.
func (s *SQLiteStorage) DeleteMapping(ctx context.Context, merchant string) error {
	if merchant == "" {
		return fmt.Errorf("merchant must not be empty")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM mappings WHERE merchant = ?`, merchant)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
