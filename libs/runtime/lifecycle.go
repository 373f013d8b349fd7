package runtime

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Stopper is anything with a context-bounded shutdown, e.g. *http.Server.
type Stopper interface {
	Shutdown(ctx context.Context) error
}

// ShutdownAll stops each component in order within one shared deadline.
func ShutdownAll(logger *slog.Logger, timeout time.Duration, stoppers map[string]Stopper, order ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, name := range order {
		s, ok := stoppers[name]
		if !ok || s == nil {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "component", name, "err", err)
			continue
		}
		logger.Info("component stopped", "component", name)
	}
}
