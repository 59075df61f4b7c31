package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/scoreloom-cli/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set scoreloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set updates one key, addressed by its dotted YAML path (e.g. woe.iv_min or
model.test_size). List values are comma-separated.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		next, err := setKey(c, args[0], args[1])
		if err != nil {
			return err
		}
		if err := cfgpkg.Save(next, cfgFile); err != nil {
			return err
		}
		cfg = next
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s = %s\n", args[0], args[1])
		return nil
	},
}

// setKey returns a copy of c with the dotted key replaced by val.
func setKey(c *cfgpkg.Global, key, val string) (*cfgpkg.Global, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	parts := strings.Split(key, ".")
	node := tree
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unknown key: %s", key)
		}
		node = child
	}
	leaf := parts[len(parts)-1]
	old, ok := node[leaf]
	if !ok {
		return nil, fmt.Errorf("unknown key: %s", key)
	}
	switch old.(type) {
	case []any:
		var items []any
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, scalar(s))
			}
		}
		node[leaf] = items
	case string:
		node[leaf] = val
	default:
		node[leaf] = scalar(val)
	}

	b, err = yaml.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var next cfgpkg.Global
	if err := yaml.Unmarshal(b, &next); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := cfgpkg.Validate(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

func scalar(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	return v
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
