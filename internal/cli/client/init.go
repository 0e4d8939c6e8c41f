package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	stratumDir = ".stratum"
	configFile = "config.yaml"
	envFile    = ".env"
)

type Config struct {
	ScopeID string `json:"scope_id" yaml:"scope_id"`
}

func InitCmd() *cobra.Command {
	var projectName string
	var orgScopeID string
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a stratum project",
		Long:  "Creates the .stratum/ directory, config.yaml with a project scope, and .env with API key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(projectName, orgScopeID, apiKey, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&projectName, "project", "", "Project name (auto-generated from directory name if not provided)")
	cmd.Flags().StringVar(&orgScopeID, "org", "", "Org scope ID the project belongs to (required)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(projectName, orgScopeID, apiKey, apiURL string, outputJSON bool) error {
	if _, err := os.Stat(stratumDir); err == nil {
		return fmt.Errorf(".stratum directory already exists")
	}

	if orgScopeID == "" {
		return fmt.Errorf("--org is required (the org scope the project belongs to)")
	}

	_ = godotenv.Load()
	if apiKey == "" {
		apiKey = os.Getenv(envAPIKey)
	}
	if apiKey == "" {
		fmt.Print("Enter API key: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(input)
		if apiKey == "" {
			return fmt.Errorf("API key is required")
		}
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if projectName == "" {
		cwd, _ := os.Getwd()
		projectName = filepath.Base(cwd)
	}

	envData := fmt.Sprintf("STRATUM_API_KEY=%s\nSTRATUM_API_URL=%s\n", apiKey, apiURL)
	if err := os.WriteFile(envFile, []byte(envData), 0600); err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}

	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		os.Remove(envFile)
		return fmt.Errorf("failed to create API client: %w", err)
	}

	resp, err := api.Post("/scopes", map[string]string{
		"type":     "project",
		"name":     projectName,
		"parentId": orgScopeID,
	})
	if err != nil {
		os.Remove(envFile)
		return fmt.Errorf("failed to create project scope: %w", err)
	}

	var scope struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Data, &scope); err != nil {
		os.Remove(envFile)
		return fmt.Errorf("failed to parse scope response: %w", err)
	}

	if err := os.MkdirAll(stratumDir, 0755); err != nil {
		return fmt.Errorf("failed to create .stratum directory: %w", err)
	}

	configPath := filepath.Join(stratumDir, configFile)
	configData := fmt.Sprintf("scope_id: %s\nscope_name: %s\n", scope.ID, scope.Name)
	if err := os.WriteFile(configPath, []byte(configData), 0644); err != nil {
		return fmt.Errorf("failed to create config.yaml: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success":    true,
			"scope_id":   scope.ID,
			"scope_name": scope.Name,
			"config":     configPath,
			"env":        envFile,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Initialized stratum project '%s'\n", scope.Name)
		fmt.Printf("Project scope ID: %s\n", scope.ID)
		fmt.Printf("Config saved to %s\n", configPath)
	}

	return nil
}

// LoadConfig reads the config from .stratum/config.yaml.
func LoadConfig() (*Config, error) {
	configPath := filepath.Join(stratumDir, configFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("not a stratum project (run 'stratum init' first)")
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Simple YAML parsing for single field
	var config Config
	for _, line := range splitLines(string(data)) {
		if len(line) > 10 && line[:10] == "scope_id: " {
			config.ScopeID = line[10:]
			break
		}
	}

	if config.ScopeID == "" {
		return nil, fmt.Errorf("invalid config: scope_id not found")
	}

	return &config, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
