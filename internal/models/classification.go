package models

import (
	"time"

	"gorm.io/datatypes"
)

// Entry points that can produce a classification record.
const (
	EntryPointAPI   = "api"
	EntryPointBatch = "batch"
)

// ClassificationRecord is the audit trail of one classified email. Only the
// masked body and entity counts are stored; raw PII never reaches the table.
type ClassificationRecord struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ReferenceID  string            `gorm:"size:36;uniqueIndex;not null" json:"reference_id"`
	Checksum     string            `gorm:"size:64;index;not null" json:"checksum"`
	MaskedEmail  string            `gorm:"type:text" json:"masked_email"`
	Category     string            `gorm:"size:64;index;not null" json:"category"`
	ClusterID    int               `gorm:"not null" json:"cluster_id"`
	EntityCounts datatypes.JSONMap `gorm:"type:json" json:"entity_counts"`
	Overlaps     int               `gorm:"not null;default:0" json:"overlaps"`
	EntryPoint   string            `gorm:"size:16;not null;default:api" json:"entry_point"`
	CreatedAt    time.Time         `json:"created_at"`
}
