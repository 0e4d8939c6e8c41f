package domain

import (
	"fmt"
	"time"
)

// EntryVersion represents an immutable snapshot of an entry's content.
// Version numbers start at 1 and increase monotonically per entry; the
// current snapshot is the one with the highest VersionNum.
type EntryVersion struct {
	ID           string
	EntryID      string
	VersionNum   int64
	Content      string
	ChangeReason string
	CreatedAt    time.Time
}

// VersionSet bundles an entry's current snapshot with its full history,
// sorted descending by VersionNum (history[0] == current).
type VersionSet struct {
	Current *EntryVersion
	History []*EntryVersion
}

// NewEntryVersion creates a new EntryVersion instance
func NewEntryVersion(id, entryID string, versionNum int64, content, changeReason string, createdAt time.Time) *EntryVersion {
	return &EntryVersion{
		ID:           id,
		EntryID:      entryID,
		VersionNum:   versionNum,
		Content:      content,
		ChangeReason: changeReason,
		CreatedAt:    createdAt,
	}
}

// ValidateEntryVersion validates an EntryVersion instance
func ValidateEntryVersion(v *EntryVersion) error {
	if v == nil {
		return fmt.Errorf("entry version cannot be nil")
	}

	if v.ID == "" {
		return fmt.Errorf("entry version ID is required")
	}

	if v.EntryID == "" {
		return fmt.Errorf("entry version EntryID is required")
	}

	if v.VersionNum <= 0 {
		return fmt.Errorf("entry version VersionNum must be greater than 0")
	}

	return nil
}
