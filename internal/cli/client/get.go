package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Entry represents a knowledge entry from the API.
type Entry struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	ScopeType  string   `json:"scopeType"`
	ScopeID    string   `json:"scopeId"`
	Category   string   `json:"category"`
	Name       string   `json:"name"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Priority   int      `json:"priority"`
	Level      string   `json:"level"`
	ValidFrom  string   `json:"validFrom"`
	ValidUntil string   `json:"validUntil"`
	IsActive   bool     `json:"isActive"`
	CreatedBy  string   `json:"createdBy"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <entry_id>",
		Short:   "Get an entry by ID",
		Long:    "Retrieves an entry by its ID and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(entryID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/entries/%s", entryID))
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(resp.Data, &entry); err != nil {
		return fmt.Errorf("failed to parse entry: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(output))
	} else {
		printEntry(&entry)
	}

	return nil
}

func printEntry(entry *Entry) {
	fmt.Printf("Name: %s\n", entry.Name)
	fmt.Printf("Type: %s\n", entry.Type)
	fmt.Printf("Scope: %s", entry.ScopeType)
	if entry.ScopeID != "" {
		fmt.Printf(" (%s)", entry.ScopeID)
	}
	fmt.Println()
	if entry.Category != "" {
		fmt.Printf("Category: %s\n", entry.Category)
	}
	if entry.Priority != 0 {
		fmt.Printf("Priority: %d\n", entry.Priority)
	}
	if entry.Level != "" {
		fmt.Printf("Level: %s\n", entry.Level)
	}
	if len(entry.Tags) > 0 {
		fmt.Printf("Tags: %s\n", strings.Join(entry.Tags, ", "))
	}
	if !entry.IsActive {
		fmt.Println("Status: inactive")
	}
	fmt.Printf("Created: %s\n", entry.CreatedAt)
	fmt.Printf("Updated: %s\n", entry.UpdatedAt)
	fmt.Println()
	fmt.Println("--- Content ---")
	fmt.Println(entry.Content)
}
