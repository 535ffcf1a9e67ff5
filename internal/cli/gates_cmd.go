package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/gateagent/internal/gate"
	"github.com/lucasnoah/gateagent/internal/gates"
	"github.com/lucasnoah/gateagent/internal/report"
)

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "List the registered gates and whether the configuration enables them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}

		rc := &gate.RunContext{ProjectRoot: root, Config: cfg}

		var rows [][]string
		for _, g := range newOrchestrator(cfg).Gates() {
			state := "disabled"
			if g.Enabled(rc) {
				state = "enabled"
			}
			kind := "built-in"
			if _, ok := g.(*gates.Custom); ok {
				kind = "custom"
			}
			rows = append(rows, []string{g.Name(), kind, state})
		}
		if err := report.Table(cmd.OutOrStdout(), []string{"GATE", "KIND", "STATE"}, rows); err != nil {
			return toolError(err)
		}
		if cfg.FailFast {
			fmt.Fprintln(cmd.OutOrStdout(), "\nfail-fast: on")
		}
		return nil
	},
}

func init() {
	gatesCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to gate-agent.yml")
}
