package cli

import (
	"github.com/mbolis/surveydesk/database"
	"github.com/mbolis/surveydesk/log"
	"github.com/spf13/cobra"
)

// newMigrateCmd applies database migrations. Opening the database already does
// this; the command exists for deploy scripts that migrate before starting.
func newMigrateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBUrl)
			if err != nil {
				return err
			}
			defer db.Close()

			version, dirty, err := database.Version(db)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("migrations applied")
			return nil
		},
	}
}
