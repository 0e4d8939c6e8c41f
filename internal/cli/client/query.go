package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryRequest mirrors the query API request body.
type QueryRequest struct {
	Types          []string     `json:"types,omitempty"`
	ScopeType      string       `json:"scopeType"`
	ScopeID        string       `json:"scopeId,omitempty"`
	Inherit        *bool        `json:"inherit,omitempty"`
	Search         string       `json:"search,omitempty"`
	SemanticSearch string       `json:"semanticSearch,omitempty"`
	Category       string       `json:"category,omitempty"`
	Priority       *PriorityReq `json:"priority,omitempty"`
	Level          string       `json:"level,omitempty"`
	Tags           *TagsReq     `json:"tags,omitempty"`
	Limit          int          `json:"limit,omitempty"`
	Offset         int          `json:"offset,omitempty"`
	WithVersions   bool         `json:"withVersions,omitempty"`
}

type PriorityReq struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

type TagsReq struct {
	Require []string `json:"require,omitempty"`
}

// QueryResultItem is one entry in the query response, with an optional
// relevance score and version history.
type QueryResultItem struct {
	Entry
	Score   *float64        `json:"score,omitempty"`
	Version json.RawMessage `json:"version,omitempty"`
}

type QueryResponse struct {
	Results []QueryResultItem `json:"results"`
	Meta    struct {
		ReturnedCount int  `json:"returnedCount"`
		HasMore       bool `json:"hasMore"`
	} `json:"meta"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var (
		types        []string
		scopeType    string
		scopeID      string
		noInherit    bool
		search       string
		semantic     string
		category     string
		level        string
		tags         []string
		priorityMin  int
		priorityMax  int
		limit        int
		offset       int
		withVersions bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query entries",
		Long:  "Queries entries across the scope chain with optional filters and search.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			req := &QueryRequest{
				Types:          types,
				ScopeType:      scopeType,
				ScopeID:        scopeID,
				Search:         search,
				SemanticSearch: semantic,
				Category:       category,
				Level:          level,
				Limit:          limit,
				Offset:         offset,
				WithVersions:   withVersions,
			}
			if noInherit {
				inherit := false
				req.Inherit = &inherit
			}
			if len(tags) > 0 {
				req.Tags = &TagsReq{Require: tags}
			}
			if cmd.Flags().Changed("priority-min") || cmd.Flags().Changed("priority-max") {
				req.Priority = &PriorityReq{}
				if cmd.Flags().Changed("priority-min") {
					req.Priority.Min = &priorityMin
				}
				if cmd.Flags().Changed("priority-max") {
					req.Priority.Max = &priorityMax
				}
			}

			return runQuery(req, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Entry type filter (repeatable; defaults to all)")
	cmd.Flags().StringVar(&scopeType, "scope-type", "", "Scope type (defaults to project)")
	cmd.Flags().StringVar(&scopeID, "scope-id", "", "Scope ID (defaults to the project scope from .stratum)")
	cmd.Flags().BoolVar(&noInherit, "no-inherit", false, "Disable parent scope inheritance")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Keyword search")
	cmd.Flags().StringVar(&semantic, "semantic", "", "Semantic search text")
	cmd.Flags().StringVar(&category, "category", "", "Category filter")
	cmd.Flags().StringVar(&level, "level", "", "Level filter")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Required tag (repeatable)")
	cmd.Flags().IntVar(&priorityMin, "priority-min", 0, "Minimum priority")
	cmd.Flags().IntVar(&priorityMax, "priority-max", 0, "Maximum priority")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Result limit (default 20, max 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Result offset")
	cmd.Flags().BoolVar(&withVersions, "with-versions", false, "Include version history in results")

	return cmd
}

func runQuery(req *QueryRequest, outputJSON bool) error {
	api, err := NewAPIClient()
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

	raw, err := api.PostRaw("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var resp QueryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to parse query response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(resp.Results) == 0 {
		fmt.Println("No entries found")
		return nil
	}

	for _, item := range resp.Results {
		line := fmt.Sprintf("%s  [%s/%s]  %s", item.ID, item.Type, item.ScopeType, item.Name)
		if item.Score != nil {
			line += fmt.Sprintf("  (score: %.3f)", *item.Score)
		}
		if len(item.Tags) > 0 {
			line += fmt.Sprintf("  #%s", strings.Join(item.Tags, " #"))
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d result(s)", resp.Meta.ReturnedCount)
	if resp.Meta.HasMore {
		fmt.Print(" (more available, use --offset)")
	}
	fmt.Println()

	return nil
}
