package importer

import (
	"github.com/spf13/cobra"

	"github.com/pitlap/race-analytics-service-go/pkg/cmd/options"
	"github.com/pitlap/race-analytics-service-go/pkg/config"
	"github.com/pitlap/race-analytics-service-go/pkg/db/postgres"
	"github.com/pitlap/race-analytics-service-go/pkg/importer"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/impl"
)

func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <archive.json> [...]",
		Short: "imports season data archives into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args)
		},
	}
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	options.SetupLoggers()
	pool := postgres.InitWithURL(config.DB)
	defer postgres.CloseDb()

	imp := importer.New(impl.NewRepositories(pool))
	for _, path := range args {
		if err := imp.ImportFile(cmd.Context(), path); err != nil {
			return err
		}
	}
	return nil
}
