package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/agent"
	"studio/internal/domain"
	"studio/internal/gateway"
	"studio/internal/history"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/storage"
	"studio/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open history store")
	}
	defer store.Close()

	uploads, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init upload storage")
	}

	client, err := gateway.NewClient(gateway.Options{
		BaseURL: cfg.BackendBaseURL,
		Token:   cfg.BackendAPIToken,
		Timeout: cfg.BackendTimeout,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway client")
	}

	journalTask := func(event string) func(domain.GenerationTask) {
		return func(task domain.GenerationTask) {
			logger.Info().Str("task_id", task.TaskID).Str("result_url", task.ResultURL).Str("error", task.Error).Msg(event)
			if err := store.RecordTaskEvent(task); err != nil {
				logger.Warn().Err(err).Str("task_id", task.TaskID).Msg("failed to journal task event")
			}
		}
	}
	tracker := tasks.NewTracker(logger, journalTask("task completed"), journalTask("task failed"))
	poller := tasks.NewPoller(client, tracker, cfg.TaskPollInterval, logger)

	session := agent.NewSession(agent.SessionOptions{
		Backend:  client,
		Registry: tracker,
		Logger:   logger,
		Sink: func(ev agent.Event) {
			var role string
			switch ev.Kind {
			case agent.EventUserMessage:
				role = "user"
			case agent.EventAssistantMessage:
				role = "assistant"
			default:
				return
			}
			if err := store.AppendMessage(ev.SessionID, role, ev.Content); err != nil {
				logger.Warn().Err(err).Msg("failed to journal message")
			}
		},
	})

	app := handlers.NewApp(logger, session, tracker, poller, client, store, uploads)
	router := httpapi.NewRouter(app, httpapi.Options{
		DefaultLocale:  cfg.DefaultLocale,
		AllowedOrigins: cfg.AllowedOrigins,
		UploadsDir:     uploads.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("studio listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.StopPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("studio stopped")
}
