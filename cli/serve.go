package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/surveydesk/app"
	"github.com/mbolis/surveydesk/cache"
	"github.com/mbolis/surveydesk/config"
	"github.com/mbolis/surveydesk/database"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/routes"
	"github.com/mbolis/surveydesk/survey"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	var answerCache app.Cache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warnf("main.redis: %s, answers will be read from the database until it is back", err)
		}
		answerCache = cache.NewAnswers(client, survey.NewAnswerLookup(db), cfg.RedisTTL())
	}

	a := app.New(db, httpx.NewBearerServer(db, cfg), cfg, answerCache)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      routes.Wire(a),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("Listening on " + cfg.Url())
		errs <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errs:
		return err
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
