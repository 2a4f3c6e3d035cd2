package cli

import (
	"os"

	"github.com/mbolis/surveydesk/config"
	"github.com/mbolis/surveydesk/log"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath  string
	host        string
	port        uint
	dbUrl       string
	tokenSecret string
	tokenTTL    string
	redisAddr   string
	debug       bool
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&flags{})
}

func newRootCmdWith(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "surveydesk",
		Short:         "Survey taking web service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", os.Getenv("SURVEYDESK_CONFIG"), "path to YAML config")
	pf.StringVar(&f.host, "host", "0.0.0.0", "address to listen on")
	pf.UintVar(&f.port, "port", 80, "port to listen on")
	pf.StringVar(&f.dbUrl, "db-url", "", "SQLite database file")
	pf.StringVar(&f.tokenSecret, "token-secret", os.Getenv("SURVEYDESK_TOKEN_SECRET"), "secret used to sign access tokens")
	pf.StringVar(&f.tokenTTL, "token-ttl", "", "access token lifetime, e.g. 2m")
	pf.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for the answer cache; empty disables it")
	pf.BoolVar(&f.debug, "debug", false, "log at debug level")

	cmd.AddCommand(newServeCmd(f))
	cmd.AddCommand(newMigrateCmd(f))
	cmd.AddCommand(newCreateUserCmd(f))
	return cmd
}

// load reads the config file and lets explicitly set flags override it.
func (f *flags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("host") || changed("port") {
		cfg.SetListen(f.host, f.port)
	}
	if changed("db-url") {
		cfg.DBUrl = f.dbUrl
	}
	if f.tokenSecret != "" {
		cfg.TokenSecret = f.tokenSecret
	}
	if changed("token-ttl") {
		cfg.RawTokenTTL = f.tokenTTL
	}
	if changed("redis-addr") {
		cfg.Redis.Addr = f.redisAddr
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}
