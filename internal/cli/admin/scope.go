package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/stratumhq/stratum/internal/config"
	"github.com/stratumhq/stratum/internal/database"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/repository"
	"github.com/stratumhq/stratum/internal/service"
)

func ScopeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Manage scopes",
		Long:  "Create, list, and delete org, project, and session scopes",
	}

	cmd.AddCommand(ScopeCreateCmd())
	cmd.AddCommand(ScopeListCmd())
	cmd.AddCommand(ScopeDeleteCmd())

	return cmd
}

func ScopeCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new scope",
		Long:  "Create a scope of the given type. Projects require an org parent, sessions a project parent.",
		Args:  cobra.ExactArgs(1),
		RunE:  runScopeCreate,
	}

	cmd.Flags().StringP("type", "t", "org", "Scope type (org, project, or session)")
	cmd.Flags().StringP("parent", "p", "", "Parent scope ID")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runScopeCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	scopeType, _ := cmd.Flags().GetString("type")
	parentID, _ := cmd.Flags().GetString("parent")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	scopeSvc := service.NewScopeService(repository.NewScopeRepository(pool))

	scope, err := scopeSvc.CreateScope(ctx, service.CreateScopeInput{
		Type:     domain.ScopeType(scopeType),
		Name:     name,
		ParentID: parentID,
	})
	if err != nil {
		return fmt.Errorf("failed to create scope: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         scope.ID,
			"type":       string(scope.Type),
			"name":       scope.Name,
			"parent_id":  scope.ParentID,
			"created_at": scope.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Scope created: %s %s (%s)\n", scope.Type, scope.Name, scope.ID)
	}

	return nil
}

func ScopeListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scopes",
		Long:  "List all scopes, optionally filtered by type",
		RunE: func(cmd *cobra.Command, args []string) error {
			scopeType, _ := cmd.Flags().GetString("type")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runScopeList(scopeType, outputFormat)
		},
	}

	cmd.Flags().StringP("type", "t", "", "Filter by scope type (org, project, or session)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runScopeList(scopeType, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	scopeSvc := service.NewScopeService(repository.NewScopeRepository(pool))

	scopes, err := scopeSvc.ListScopes(ctx, domain.ScopeType(scopeType))
	if err != nil {
		return fmt.Errorf("failed to list scopes: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(scopes))
		for i, scope := range scopes {
			data[i] = map[string]interface{}{
				"id":         scope.ID,
				"type":       string(scope.Type),
				"name":       scope.Name,
				"parent_id":  scope.ParentID,
				"created_at": scope.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(scopes) == 0 {
			fmt.Println("No scopes found")
			return nil
		}
		fmt.Println("Scopes:")
		for _, scope := range scopes {
			if scope.ParentID != "" {
				fmt.Printf("  %s: %s %s (parent: %s)\n", scope.ID, scope.Type, scope.Name, scope.ParentID)
			} else {
				fmt.Printf("  %s: %s %s\n", scope.ID, scope.Type, scope.Name)
			}
		}
	}

	return nil
}

func ScopeDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a scope",
		Long:  "Delete a scope by ID. Child scopes are deleted with it.",
		Args:  cobra.ExactArgs(1),
		RunE:  runScopeDelete,
	}

	return cmd
}

func runScopeDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	scopeSvc := service.NewScopeService(repository.NewScopeRepository(pool))

	if err := scopeSvc.DeleteScope(ctx, id); err != nil {
		return fmt.Errorf("failed to delete scope: %w", err)
	}

	fmt.Printf("Scope %s deleted\n", id)
	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, nil
}
