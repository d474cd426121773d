// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package catalog persists a durable summary of each book a user has
// generated, derived from TaskState snapshots — unlike taskstate, this
// survives process restarts. Adapted from original_source/backend/
// models.py's SQLAlchemy History model onto gorm.io/gorm + postgres.
package catalog

import "time"

// Status is the derived lifecycle projection for a CatalogRecord, computed
// from a taskstate.Snapshot's Generated/Failed/Pages counts, per spec.md §6.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
)

// DeriveStatus computes Status from generated/failed/total page counts.
func DeriveStatus(generated, failed, total int) Status {
	switch {
	case generated == 0:
		return StatusDraft
	case generated == total && failed == 0:
		return StatusCompleted
	default:
		return StatusPartial
	}
}

// CatalogRecord is one row in the `history` table.
type CatalogRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	Title       string `gorm:"size:255;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TaskID      string `gorm:"size:255;index"`
	FullOutline string `gorm:"type:text"`
	// OutlineJSON is the serialized page list, stored as JSON text rather
	// than gorm's datatypes.JSON to avoid an extra dependency the pack
	// doesn't otherwise pull in — see DESIGN.md.
	OutlineJSON string `gorm:"type:text"`
	ImagesJSON  string `gorm:"type:text"`
	Status      Status `gorm:"size:50;default:draft"`
	Thumbnail   string `gorm:"size:255"`
	PageCount   int
}

// TableName pins the table name to match the original's `history` table.
func (CatalogRecord) TableName() string {
	return "history"
}
