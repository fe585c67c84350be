package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"readmegen/internal/api"
	"readmegen/internal/auth"
	"readmegen/internal/config"
	"readmegen/internal/render"
	"readmegen/internal/service/ai"
	"readmegen/internal/service/assistant"
	"readmegen/internal/session"
	"readmegen/internal/worker"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides basic_config.server_address)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.BasicConfig.ServerAddress
	}
	if addr == "" {
		addr = ":8090"
	}

	log.Printf("session store: %s", cfg.Session.Store)
	store, err := session.Open(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	ttl := session.TTLFromConfig(cfg)
	sessions := session.NewManager(store, ttl)
	defer sessions.Close()

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sessions.StartSweeper(sweepCtx, session.SweepIntervalFromConfig(cfg))

	var generator ai.Generator
	gen, configErr := newGenerator(cmd.Context(), cfg)
	switch {
	case configErr == nil:
		generator = gen
	case errors.Is(configErr, config.ErrMissingCredential):
		// keep serving so the page can show what is missing
		log.Printf("generation disabled: %v", configErr)
	default:
		return configErr
	}

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	})
	defer dispatcher.Stop()

	assistantService, err := assistant.NewService(assistant.Options{
		Sessions:          sessions,
		Generator:         generator,
		ConfigErr:         configErr,
		Dispatcher:        dispatcher,
		Renderer:          render.NewRenderer(),
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		MaxFileBytes:      cfg.Upload.MaxUploadBytes,
		Provider:          cfg.Generator.Provider,
		Model:             cfg.GeneratorModel(),
	})
	if err != nil {
		return fmt.Errorf("init assistant service: %w", err)
	}
	authService := auth.NewService(cfg.Session.CookieName, ttl)
	handlers := api.NewHandler(assistantService, authService, cfg.Upload.MaxUploadBytes)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	log.Printf("readmegen listening on %s (%s/%s)", addr, cfg.Generator.Provider, cfg.GeneratorModel())
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
