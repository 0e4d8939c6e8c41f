package domain

import (
	"fmt"
	"time"
)

// EntryType represents the kind of knowledge artifact an entry holds
type EntryType string

const (
	EntryTypeTool       EntryType = "tool"
	EntryTypeGuideline  EntryType = "guideline"
	EntryTypeKnowledge  EntryType = "knowledge"
	EntryTypeExperience EntryType = "experience"
)

// AllEntryTypes lists every entry type in stable order
var AllEntryTypes = []EntryType{
	EntryTypeTool,
	EntryTypeGuideline,
	EntryTypeKnowledge,
	EntryTypeExperience,
}

// Guideline priority bounds
const (
	MinPriority = 1
	MaxPriority = 10
)

// Entry represents a scoped knowledge artifact. Variant fields are only
// meaningful for their entry type: Priority for guidelines, Level for
// experiences, ValidFrom/ValidUntil for temporal knowledge. Category and
// Level are free strings; unrecognized values filter to an empty set
// rather than failing, so newer clients can query ahead of the schema.
type Entry struct {
	ID         string
	Type       EntryType
	ScopeType  ScopeType
	ScopeID    string // empty iff ScopeType is global
	Category   string
	Name       string
	Content    string
	Tags       []string
	Priority   int    // guideline only, MinPriority..MaxPriority
	Level      string // experience only
	ValidFrom  *time.Time
	ValidUntil *time.Time
	IsActive   bool
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Scope returns the entry's scope reference
func (e *Entry) Scope() ScopeRef {
	return ScopeRef{Type: e.ScopeType, ID: e.ScopeID}
}

// ValidAt reports whether a knowledge entry's validity window covers t.
// A nil ValidFrom means valid since creation; a nil ValidUntil means
// still valid.
func (e *Entry) ValidAt(t time.Time) bool {
	if e.ValidFrom != nil && t.Before(*e.ValidFrom) {
		return false
	}
	if e.ValidUntil != nil && t.After(*e.ValidUntil) {
		return false
	}
	return true
}

// ValidateEntry validates an Entry instance
func ValidateEntry(e *Entry) error {
	if e == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("entry ID is required")
	}

	if e.Name == "" {
		return fmt.Errorf("entry Name is required")
	}

	if e.Content == "" {
		return fmt.Errorf("entry Content is required")
	}

	if !IsValidEntryType(e.Type) {
		return fmt.Errorf("entry Type is invalid: %s", e.Type)
	}

	if err := ValidateScopeRef(e.Scope()); err != nil {
		return err
	}

	if e.Type == EntryTypeGuideline {
		if e.Priority < MinPriority || e.Priority > MaxPriority {
			return fmt.Errorf("guideline Priority must be between %d and %d", MinPriority, MaxPriority)
		}
	} else if e.Priority != 0 {
		return fmt.Errorf("Priority is only valid for guideline entries")
	}

	if e.Type != EntryTypeExperience && e.Level != "" {
		return fmt.Errorf("Level is only valid for experience entries")
	}

	if e.Type != EntryTypeKnowledge && (e.ValidFrom != nil || e.ValidUntil != nil) {
		return fmt.Errorf("validity window is only valid for knowledge entries")
	}

	if e.ValidFrom != nil && e.ValidUntil != nil && e.ValidFrom.After(*e.ValidUntil) {
		return fmt.Errorf("entry ValidFrom must not be after ValidUntil")
	}

	return nil
}

// IsValidEntryType checks if an EntryType is valid
func IsValidEntryType(t EntryType) bool {
	switch t {
	case EntryTypeTool, EntryTypeGuideline, EntryTypeKnowledge, EntryTypeExperience:
		return true
	}
	return false
}

// ParseEntryType parses an entry type string, failing on unknown values
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(s)
	if !IsValidEntryType(t) {
		return "", fmt.Errorf("unknown entry type: %q", s)
	}
	return t, nil
}
