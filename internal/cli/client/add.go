package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// CreateEntryRequest represents the create entry API request.
type CreateEntryRequest struct {
	Type      string   `json:"type"`
	ScopeType string   `json:"scopeType,omitempty"`
	ScopeID   string   `json:"scopeId,omitempty"`
	Category  string   `json:"category,omitempty"`
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	Priority  int      `json:"priority,omitempty"`
	Level     string   `json:"level,omitempty"`
	CreatedBy string   `json:"createdBy,omitempty"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		file      string
		entryType string
		name      string
		category  string
		level     string
		priority  int
		tags      []string
		scopeType string
		scopeID   string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry from stdin or file",
		Long: `Add an entry from JSON input (stdin or file) or markdown with flags.

Examples:
  # Add from JSON on stdin
  echo '{"type":"guideline","name":"Test","content":"# Test"}' | stratum add

  # Add from JSON file
  stratum add --file entry.json

  # Add from markdown file with flags
  stratum add --file guide.md --type guideline --name "My Guide"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdd(addInput{
				file:      file,
				entryType: entryType,
				name:      name,
				category:  category,
				level:     level,
				priority:  priority,
				tags:      tags,
				scopeType: scopeType,
				scopeID:   scopeID,
			}, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (JSON or markdown)")
	cmd.Flags().StringVarP(&entryType, "type", "t", "", "Entry type (guideline, knowledge, tool, experience)")
	cmd.Flags().StringVar(&name, "name", "", "Entry name (required with --file for markdown)")
	cmd.Flags().StringVar(&category, "category", "", "Category (optional)")
	cmd.Flags().StringVar(&level, "level", "", "Level (optional)")
	cmd.Flags().IntVar(&priority, "priority", 0, "Priority (optional)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&scopeType, "scope-type", "", "Scope type (defaults to project)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "Scope ID (defaults to the project scope from .stratum)")

	return cmd
}

type addInput struct {
	file      string
	entryType string
	name      string
	category  string
	level     string
	priority  int
	tags      []string
	scopeType string
	scopeID   string
}

func runAdd(in addInput, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req, err := buildCreateRequest(in)
	if err != nil {
		return err
	}

	if req.ScopeType == "" && req.ScopeID == "" {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		req.ScopeType = "project"
		req.ScopeID = config.ScopeID
	}

	resp, err := api.Post("/entries", req)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(resp.Data, &entry); err != nil {
		return fmt.Errorf("failed to parse entry: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Created entry: %s\n", entry.ID)
		fmt.Printf("Name: %s\n", entry.Name)
		fmt.Printf("Type: %s\n", entry.Type)
	}

	return nil
}

// buildCreateRequest assembles the request from flags and input. Markdown
// input keeps the file body as-is; JSON input supplies the full request
// and flags fill in anything the JSON leaves blank.
func buildCreateRequest(in addInput) (*CreateEntryRequest, error) {
	var input []byte
	var err error

	if in.file != "" {
		input, err = os.ReadFile(in.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	if len(input) == 0 {
		return nil, fmt.Errorf("no input provided")
	}

	var req CreateEntryRequest
	if isMarkdownInput(in.file, input) {
		if in.entryType == "" || in.name == "" {
			return nil, fmt.Errorf("--type and --name are required for markdown input")
		}
		req.Content = string(input)
	} else {
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("failed to parse JSON input: %w", err)
		}
	}

	if in.entryType != "" {
		req.Type = in.entryType
	}
	if in.name != "" {
		req.Name = in.name
	}
	if in.category != "" {
		req.Category = in.category
	}
	if in.level != "" {
		req.Level = in.level
	}
	if in.priority != 0 {
		req.Priority = in.priority
	}
	if len(in.tags) > 0 {
		req.Tags = in.tags
	}
	if in.scopeType != "" {
		req.ScopeType = in.scopeType
	}
	if in.scopeID != "" {
		req.ScopeID = in.scopeID
	}

	if req.Type == "" {
		return nil, fmt.Errorf("entry type is required")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("entry name is required")
	}
	if req.Content == "" {
		return nil, fmt.Errorf("entry content is required")
	}

	return &req, nil
}

func isMarkdownInput(file string, input []byte) bool {
	if strings.HasSuffix(file, ".md") || strings.HasSuffix(file, ".markdown") {
		return true
	}
	trimmed := strings.TrimSpace(string(input))
	return !strings.HasPrefix(trimmed, "{")
}
