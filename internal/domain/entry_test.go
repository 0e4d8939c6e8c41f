package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry(entryType EntryType) *Entry {
	now := time.Now()
	e := &Entry{
		ID:        "e1",
		Type:      entryType,
		ScopeType: ScopeTypeProject,
		ScopeID:   "proj1",
		Category:  "testing",
		Name:      "test entry",
		Content:   "some content",
		IsActive:  true,
		CreatedBy: "agent-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if entryType == EntryTypeGuideline {
		e.Priority = 5
	}
	return e
}

func TestEntryTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		typeVal  EntryType
		expected string
	}{
		{"Tool", EntryTypeTool, "tool"},
		{"Guideline", EntryTypeGuideline, "guideline"},
		{"Knowledge", EntryTypeKnowledge, "knowledge"},
		{"Experience", EntryTypeExperience, "experience"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.typeVal))
		})
	}
}

func TestValidateEntry(t *testing.T) {
	t.Run("valid entries for all types", func(t *testing.T) {
		for _, entryType := range AllEntryTypes {
			assert.NoError(t, ValidateEntry(validEntry(entryType)), string(entryType))
		}
	})

	t.Run("nil entry", func(t *testing.T) {
		assert.Error(t, ValidateEntry(nil))
	})

	t.Run("missing ID", func(t *testing.T) {
		e := validEntry(EntryTypeTool)
		e.ID = ""
		assert.Error(t, ValidateEntry(e))
	})

	t.Run("missing name", func(t *testing.T) {
		e := validEntry(EntryTypeTool)
		e.Name = ""
		assert.Error(t, ValidateEntry(e))
	})

	t.Run("invalid type", func(t *testing.T) {
		e := validEntry(EntryTypeTool)
		e.Type = EntryType("widget")
		assert.Error(t, ValidateEntry(e))
	})

	t.Run("global scope with scope ID", func(t *testing.T) {
		e := validEntry(EntryTypeTool)
		e.ScopeType = ScopeTypeGlobal
		assert.Error(t, ValidateEntry(e))

		e.ScopeID = ""
		assert.NoError(t, ValidateEntry(e))
	})

	t.Run("guideline priority bounds", func(t *testing.T) {
		e := validEntry(EntryTypeGuideline)
		e.Priority = 0
		assert.Error(t, ValidateEntry(e))

		e.Priority = MaxPriority + 1
		assert.Error(t, ValidateEntry(e))

		e.Priority = MinPriority
		assert.NoError(t, ValidateEntry(e))
	})

	t.Run("priority rejected on non-guideline", func(t *testing.T) {
		e := validEntry(EntryTypeTool)
		e.Priority = 3
		assert.Error(t, ValidateEntry(e))
	})

	t.Run("level rejected on non-experience", func(t *testing.T) {
		e := validEntry(EntryTypeKnowledge)
		e.Level = "expert"
		assert.Error(t, ValidateEntry(e))
	})

	t.Run("validity window only on knowledge", func(t *testing.T) {
		now := time.Now()
		e := validEntry(EntryTypeTool)
		e.ValidFrom = &now
		assert.Error(t, ValidateEntry(e))

		k := validEntry(EntryTypeKnowledge)
		k.ValidFrom = &now
		assert.NoError(t, ValidateEntry(k))
	})

	t.Run("inverted validity window", func(t *testing.T) {
		from := time.Now()
		until := from.Add(-time.Hour)
		e := validEntry(EntryTypeKnowledge)
		e.ValidFrom = &from
		e.ValidUntil = &until
		assert.Error(t, ValidateEntry(e))
	})
}

func TestEntryValidAt(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	from := base
	until := base.AddDate(0, 1, 0)

	e := validEntry(EntryTypeKnowledge)
	e.ValidFrom = &from
	e.ValidUntil = &until

	assert.True(t, e.ValidAt(base), "boundary start is inclusive")
	assert.True(t, e.ValidAt(until), "boundary end is inclusive")
	assert.True(t, e.ValidAt(base.AddDate(0, 0, 15)))
	assert.False(t, e.ValidAt(base.Add(-time.Second)))
	assert.False(t, e.ValidAt(until.Add(time.Second)))

	t.Run("open-ended window", func(t *testing.T) {
		open := validEntry(EntryTypeKnowledge)
		open.ValidFrom = &from
		assert.True(t, open.ValidAt(base.AddDate(10, 0, 0)), "nil ValidUntil means still valid")
	})

	t.Run("no window at all", func(t *testing.T) {
		always := validEntry(EntryTypeKnowledge)
		assert.True(t, always.ValidAt(time.Time{}))
	})
}

func TestParseEntryType(t *testing.T) {
	parsed, err := ParseEntryType("guideline")
	require.NoError(t, err)
	assert.Equal(t, EntryTypeGuideline, parsed)

	_, err = ParseEntryType("widget")
	assert.Error(t, err)
}
