package cli

import (
	"errors"
	"os"

	"github.com/mbolis/surveydesk/admin"
	"github.com/mbolis/surveydesk/database"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/model"
	"github.com/mbolis/surveydesk/store"
	"github.com/spf13/cobra"
)

func newCreateUserCmd(f *flags) *cobra.Command {
	var username, password string
	var staff, superuser bool

	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a user account, by default a superuser",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SURVEYDESK_PASSWORD")
			}
			if err := admin.ValidateRegistration(username, password, password); err != nil {
				return err
			}

			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBUrl)
			if err != nil {
				return err
			}
			defer db.Close()

			u := model.User{Username: username, IsStaff: staff || superuser, IsSuperuser: superuser}
			err = store.CreateUser(cmd.Context(), db, &u, password)
			if errors.Is(err, store.ErrConflict) {
				return errors.New("a user with that username already exists")
			}
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"user":      u.Username,
				"id":        u.ID,
				"staff":     u.IsStaff,
				"superuser": u.IsSuperuser,
			}).Info("user created")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password (default $SURVEYDESK_PASSWORD)")
	cmd.Flags().BoolVar(&staff, "staff", false, "grant staff access")
	cmd.Flags().BoolVar(&superuser, "superuser", true, "grant every capability")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
