// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/n1n-api/picturebook/internal/model"
	"github.com/n1n-api/picturebook/internal/taskstate"
)

// Repository is the gorm-backed persistence layer over CatalogRecord.
type Repository struct {
	db *gorm.DB
}

// Open connects to postgres at dsn and ensures the schema exists.
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if err := db.AutoMigrate(&CatalogRecord{}); err != nil {
		return nil, fmt.Errorf("migrate catalog schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Create inserts a new record for a freshly started task.
func (r *Repository) Create(ctx context.Context, id, title, taskID string, outline model.Outline) (*CatalogRecord, error) {
	outlineJSON, err := json.Marshal(outline.Pages)
	if err != nil {
		return nil, fmt.Errorf("marshal outline: %w", err)
	}

	rec := &CatalogRecord{
		ID:          id,
		Title:       title,
		TaskID:      taskID,
		FullOutline: outline.FullOutline,
		OutlineJSON: string(outlineJSON),
		Status:      StatusDraft,
		PageCount:   len(outline.Pages),
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("insert catalog record: %w", err)
	}
	return rec, nil
}

// SyncFromSnapshot recomputes status/images/thumbnail from a TaskState
// snapshot and persists the update. Called by the transport layer once the
// event stream of a generate or batch-retry call has closed.
func (r *Repository) SyncFromSnapshot(ctx context.Context, taskID string, snap taskstate.Snapshot, thumbnail string) error {
	imagesJSON, err := json.Marshal(struct {
		TaskID    string   `json:"task_id"`
		Generated []string `json:"generated"`
	}{
		TaskID:    snap.TaskID,
		Generated: sortedValues(snap.Generated),
	})
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	status := DeriveStatus(len(snap.Generated), len(snap.Failed), len(snap.Pages))

	return r.db.WithContext(ctx).Model(&CatalogRecord{}).
		Where("task_id = ?", taskID).
		Updates(map[string]any{
			"status":      status,
			"images_json": string(imagesJSON),
			"thumbnail":   thumbnail,
		}).Error
}

// Get fetches the record with the given id.
func (r *Repository) Get(ctx context.Context, id string) (*CatalogRecord, error) {
	var rec CatalogRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get catalog record %s: %w", id, err)
	}
	return &rec, nil
}

// List returns every record, most recently created first.
func (r *Repository) List(ctx context.Context) ([]CatalogRecord, error) {
	var recs []CatalogRecord
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list catalog records: %w", err)
	}
	return recs, nil
}

// Delete removes the record with the given id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&CatalogRecord{}, "id = ?", id).Error
}

// DeleteByTaskID removes the record for the given task, if one exists. The
// transport layer's cleanup_task operation only knows the task id, not the
// catalog record's own primary key, so it calls this instead of Delete.
func (r *Repository) DeleteByTaskID(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Delete(&CatalogRecord{}, "task_id = ?", taskID).Error
}

// sortedValues returns m's values ordered by ascending key (page index).
// Page indices are 1-based (spec.md §3) and need not be contiguous —
// pages can be skipped or retried independently — so this sorts the keys
// directly rather than probing a 0..len(m) range.
func sortedValues(m map[int]string) []string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]string, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
