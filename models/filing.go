package models

import (
	"time"

	"github.com/google/uuid"
)

// Filing represents the regulatory submission record for an approved narrative
type Filing struct {
	ID           uuid.UUID `json:"id"`
	CaseID       uuid.UUID `json:"case_id"`
	VersionID    uuid.UUID `json:"version_id"`
	SARReference string    `json:"sar_reference"`
	ArchivePath  string    `json:"archive_path"`
	FiledBy      string    `json:"filed_by"`
	FiledAt      time.Time `json:"filed_at"`
}
