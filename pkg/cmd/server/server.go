package server

import (
	"github.com/spf13/cobra"

	httpServer "github.com/pitlap/race-analytics-service-go/pkg/cmd/server/http"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "commands for running the server",
	}
	cmd.AddCommand(httpServer.NewServerCmd())
	return cmd
}
