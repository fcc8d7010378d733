package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage prping configuration",
	Long:  `Show and modify prping configuration values.`,
}

var configJSONFlag bool
var configGlobalFlag bool

func init() {
	configShowCmd.Flags().BoolVar(&configJSONFlag, "json", false, "Output raw JSON without formatting")
	configSetCmd.Flags().BoolVar(&configGlobalFlag, "global", false, "Write to the user config instead of the workspace config")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Redact secrets before display.
		redacted := redactConfig(appConfig)

		var data []byte
		var err error
		if configJSONFlag {
			data, err = json.Marshal(redacted)
		} else {
			data, err = json.MarshalIndent(redacted, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// redactConfig returns a copy of the config with secret fields masked.
func redactConfig(cfg *config.Config) *config.Config {
	copy := *cfg
	if copy.Notify.WebhookURL != "" {
		copy.Notify.WebhookURL = "***"
	}
	return &copy
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read a config value by dotted key path",
	Example: `  prping config get server.poll_interval
  prping config get discovery.roots`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.Marshal(appConfig)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}

		result := gjson.GetBytes(data, args[0])
		if !result.Exists() {
			return fmt.Errorf("unknown config key %q", args[0])
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.String())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a configuration value using a dotted key path.

By default the value is written to .prping/prping.jsonc in the
repository root; --global writes the user config instead. The file is
created if it does not exist.

Note: JSONC comments are not preserved on write.`,
	Example: `  prping config set server.poll_interval 10m
  prping config set providers.default gitlab
  prping config set --global daily.url https://internal/today.md`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		rawValue := args[1]

		// Determine value type: try bool, then number, then string
		var value any
		if b, err := strconv.ParseBool(rawValue); err == nil {
			value = b
		} else if i, err := strconv.ParseInt(rawValue, 10, 64); err == nil {
			value = i
		} else if f, err := strconv.ParseFloat(rawValue, 64); err == nil {
			value = f
		} else {
			value = rawValue
		}

		configPath := config.UserPath()
		if !configGlobalFlag {
			repoRoot := config.RepoRoot()
			if repoRoot == "" {
				return fmt.Errorf("not in a git repository (use --global for the user config)")
			}
			configPath = filepath.Join(repoRoot, ".prping", config.FileName)
		}

		// Read existing file or start with empty JSON object
		var existing []byte
		if data, err := os.ReadFile(configPath); err == nil {
			// Strip JSONC comments before passing to sjson (which requires valid JSON).
			// Note: comments are not preserved on write.
			existing = jsonc.ToJSON(data)
		} else {
			existing = []byte("{}")
		}

		// Use sjson for in-place modification
		updated, err := sjson.SetBytes(existing, key, value)
		if err != nil {
			return fmt.Errorf("setting key %q: %w", key, err)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(configPath, updated, 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, value)
		return nil
	},
}
