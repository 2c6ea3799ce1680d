package sync

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// BatchCompleteMessage is the fixed reply of a one-shot invocation.
const BatchCompleteMessage = "Batch complete"

// Runner runs one sync pass.
type Runner interface {
	Run(ctx context.Context) RunSummary
}

// NewHandler returns a request handler that runs a full sync and always
// answers 200, partial failures are only visible in the logs.
// A client disconnect does not cancel the run.
func NewHandler(runner Runner, logger *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("Starting cold email campaign execution")
		runner.Run(context.WithoutCancel(r.Context()))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, BatchCompleteMessage)
	})
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context) RunSummary

func (f RunnerFunc) Run(ctx context.Context) RunSummary {
	return f(ctx)
}
