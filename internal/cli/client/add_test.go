package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuildCreateRequest_JSONFile(t *testing.T) {
	path := writeTempFile(t, "entry.json", `{
		"type": "guideline",
		"name": "Connection pooling",
		"content": "# Use pgxpool",
		"tags": ["db", "performance"],
		"priority": 8
	}`)

	req, err := buildCreateRequest(addInput{file: path})
	require.NoError(t, err)
	assert.Equal(t, "guideline", req.Type)
	assert.Equal(t, "Connection pooling", req.Name)
	assert.Equal(t, "# Use pgxpool", req.Content)
	assert.Equal(t, []string{"db", "performance"}, req.Tags)
	assert.Equal(t, 8, req.Priority)
}

func TestBuildCreateRequest_MarkdownFile(t *testing.T) {
	path := writeTempFile(t, "guide.md", "# Heading\n\nBody text\n")

	req, err := buildCreateRequest(addInput{
		file:      path,
		entryType: "knowledge",
		name:      "Style guide",
	})
	require.NoError(t, err)
	assert.Equal(t, "knowledge", req.Type)
	assert.Equal(t, "Style guide", req.Name)
	assert.Equal(t, "# Heading\n\nBody text\n", req.Content)
}

func TestBuildCreateRequest_MarkdownRequiresFlags(t *testing.T) {
	path := writeTempFile(t, "guide.md", "# Heading\n")

	_, err := buildCreateRequest(addInput{file: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--type and --name are required")
}

func TestBuildCreateRequest_FlagsOverrideJSON(t *testing.T) {
	path := writeTempFile(t, "entry.json", `{"type":"guideline","name":"Old name","content":"body"}`)

	req, err := buildCreateRequest(addInput{
		file:     path,
		name:     "New name",
		category: "testing",
		tags:     []string{"ci"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New name", req.Name)
	assert.Equal(t, "testing", req.Category)
	assert.Equal(t, []string{"ci"}, req.Tags)
}

func TestBuildCreateRequest_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{"missing type", `{"name":"n","content":"c"}`, "entry type is required"},
		{"missing name", `{"type":"guideline","content":"c"}`, "entry name is required"},
		{"missing content", `{"type":"guideline","name":"n"}`, "entry content is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "entry.json", tt.json)
			_, err := buildCreateRequest(addInput{file: path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildCreateRequest_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, "entry.json", `{not json`)

	_, err := buildCreateRequest(addInput{file: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse JSON input")
}

func TestIsMarkdownInput(t *testing.T) {
	assert.True(t, isMarkdownInput("guide.md", []byte("# x")))
	assert.True(t, isMarkdownInput("guide.markdown", []byte("{")))
	assert.True(t, isMarkdownInput("", []byte("# not json")))
	assert.False(t, isMarkdownInput("", []byte(`{"type":"guideline"}`)))
	assert.False(t, isMarkdownInput("entry.json", []byte(`{"type":"guideline"}`)))
}
