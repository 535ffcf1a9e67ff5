package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/gateagent/internal/config"
)

var (
	configFile       string
	configSchemaFlag bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and inspect gate-agent configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		path := configFile
		if path == "" {
			if path, err = config.Find(root); err != nil {
				return toolError(err)
			}
		}

		_, err = config.Load(path)
		var problems config.ValidationErrors
		switch {
		case err == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", path)
			return nil
		case errors.As(err, &problems):
			fmt.Fprintln(cmd.OutOrStdout(), "Validation errors:")
			for _, p := range problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", p)
			}
			return &exitError{code: 1, err: fmt.Errorf("config has %d validation error(s)", len(problems))}
		default:
			return toolError(err)
		}
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration with defaults merged",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configSchemaFlag {
			_, err := cmd.OutOrStdout().Write(config.Schema())
			return err
		}
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}

		data, err := config.Marshal(cfg)
		if err != nil {
			return toolError(fmt.Errorf("marshalling config: %w", err))
		}
		if cfg.Path() != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.Path())
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "# no config file found; showing defaults")
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// loadConfig loads --config when given, otherwise the file found upward
// from root, otherwise the defaults.
func loadConfig(root string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadFrom(root)
	}
	if err != nil {
		return nil, toolError(err)
	}
	return cfg, nil
}

func init() {
	configCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to gate-agent.yml")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().BoolVar(&configSchemaFlag, "schema", false, "print the JSON Schema config files are checked against")
}
