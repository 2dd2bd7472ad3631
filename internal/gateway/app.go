package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	httpServer *http.Server
	log        *zap.Logger
}

func NewApp(addr string, handler *gin.Engine, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run 启动服务并阻塞，直到 ctx 结束或监听失败
func (a *App) Run(ctx context.Context) error {
	// 1. Start HTTP
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting HTTP Server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 2. 等待退出
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	a.log.Info("Shutting down server...")

	// 3. Graceful Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Error("HTTP Server forced to shutdown", zap.Error(err))
		return err
	}
	a.log.Info("Server exited properly")
	return nil
}
