package gateway

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/gateway/config"
	"github.com/clinicore/clinicore/internal/gateway/handler/middleware"
	"github.com/clinicore/clinicore/internal/gateway/service/chat"
	"github.com/clinicore/clinicore/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type apiServer struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server

	chatModule *chat.Module
}

type preparedAPIServer struct {
	*apiServer
}

func createAPIServer(cfg *config.Config) (*apiServer, error) {
	gin.SetMode(cfg.ServerRunOptions.Mode)
	engine := gin.New()

	chatCfg := &chat.Config{
		StoreType:         cfg.ChatOptions.StoreType,
		DBPath:            cfg.ChatOptions.DBPath,
		WorkerConcurrency: cfg.ChatOptions.WorkerConcurrency,
		SoftDeadline:      cfg.ChatOptions.SoftDeadline,
		HardDeadline:      cfg.ChatOptions.HardDeadline,
		QueueCapacity:     cfg.ChatOptions.QueueCapacity,
		MaxRetries:        cfg.ChatOptions.MaxRetries,
		RetryBackoff:      cfg.ChatOptions.RetryBackoff,
		ConsultTimeout:    cfg.ChatOptions.ConsultTimeout,
		ToolTimeout:       cfg.ChatOptions.ToolTimeout,
		PythonBin:         cfg.ChatOptions.PythonBin,
		StaleAfter:        cfg.ChatOptions.StaleAfter,
		ReconcileInterval: cfg.ChatOptions.ReconcileInterval,
	}
	chatModule, err := chatCfg.Complete().New(context.Background(), chat.Dependencies{})
	if err != nil {
		return nil, err
	}
	logger.Info("[Gateway] Chat module initialized successfully")

	return &apiServer{
		cfg:    cfg,
		engine: engine,
		httpServer: &http.Server{
			Addr:    cfg.ServerRunOptions.Address(),
			Handler: engine,
		},
		chatModule: chatModule,
	}, nil
}

func (s *apiServer) PrepareRun() preparedAPIServer {
	initRouter(s.engine, &routerDeps{
		chatService: s.chatModule.Service,
		gate:        s.chatModule.Gate,
		specialists: s.chatModule.Specialists,
		authConfig: &middleware.AuthConfig{
			Enabled: s.cfg.AuthOptions.Enabled,
			Token:   s.cfg.AuthOptions.Token,
		},
		serverOpts: s.cfg.ServerRunOptions,
	})
	return preparedAPIServer{s}
}

// Run starts the workers and serves HTTP until SIGINT or SIGTERM, then
// drains in-flight requests and closes the chat module.
func (s preparedAPIServer) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.chatModule.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Gateway] serving on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[Gateway] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[Gateway] http shutdown: %v", err)
	}
	if err := s.chatModule.Close(); err != nil {
		logger.Warn("[Gateway] chat module close: %v", err)
	}
	logger.Info("[Gateway] stopped")
	return nil
}
