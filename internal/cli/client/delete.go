package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <entry_id>",
		Short: "Deactivate an entry",
		Long:  "Deactivates an entry by ID. History is kept; the entry stops appearing in default query results.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args[0])
		},
	}

	return cmd
}

func runDelete(entryID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/entries/%s", entryID)); err != nil {
		return fmt.Errorf("failed to deactivate entry: %w", err)
	}

	fmt.Printf("Deactivated entry: %s\n", entryID)
	return nil
}
