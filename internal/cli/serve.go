package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/gateagent/internal/web"
)

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local run-history web UI",
	Long: `Start a read-only browser UI showing the runs recorded in the history store
configured in gate-agent.yml, with per-gate results and a JSON API under /api/runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		s, err := openHistory(root, cfg)
		if err != nil {
			return toolError(err)
		}
		defer s.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "gate-agent history UI: %s\n", web.URL(serveAddrFlag))
		if err := web.NewServer(s, logger).Start(cmd.Context(), serveAddrFlag); err != nil {
			return toolError(err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to gate-agent.yml")
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "localhost:8080", "address to listen on")
}

