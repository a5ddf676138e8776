package server

import (
	"context"
	"fmt"

	"github.com/mwantia/caltrack/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/caltrack/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Caltrack Agent",
		Long:  `Start the Caltrack Agent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			agent := agent.NewAgent(cfg)
			if err := agent.Serve(context.Background()); err != nil {
				return err
			}

			return nil
		},
	}

	return cmd
}
