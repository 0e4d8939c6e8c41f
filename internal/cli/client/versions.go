package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Version represents one version record from the API.
type Version struct {
	ID           string `json:"id"`
	EntryID      string `json:"entryId"`
	VersionNum   int64  `json:"versionNum"`
	Content      string `json:"content"`
	ChangeReason string `json:"changeReason"`
	CreatedAt    string `json:"createdAt"`
}

// VersionSet holds the current version and the full history.
type VersionSet struct {
	Current *Version  `json:"current"`
	History []Version `json:"history"`
}

// VersionsCmd creates the versions command.
func VersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <entry_id>",
		Short: "Show an entry's version history",
		Long:  "Lists all versions of an entry, newest first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			showContent, _ := cmd.Flags().GetBool("content")
			return runVersions(args[0], outputJSON, showContent)
		},
	}

	cmd.Flags().Bool("content", false, "Print the full content of each version")

	return cmd
}

func runVersions(entryID string, outputJSON, showContent bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/entries/%s/versions", entryID))
	if err != nil {
		return fmt.Errorf("failed to get versions: %w", err)
	}

	var set VersionSet
	if err := json.Unmarshal(resp.Data, &set); err != nil {
		return fmt.Errorf("failed to parse versions: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(set, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(set.History) == 0 {
		fmt.Println("No versions found")
		return nil
	}

	for _, v := range set.History {
		marker := " "
		if set.Current != nil && v.ID == set.Current.ID {
			marker = "*"
		}
		line := fmt.Sprintf("%s v%d  %s", marker, v.VersionNum, v.CreatedAt)
		if v.ChangeReason != "" {
			line += fmt.Sprintf("  (%s)", v.ChangeReason)
		}
		fmt.Println(line)
		if showContent {
			fmt.Println(v.Content)
			fmt.Println()
		}
	}

	return nil
}
