package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestHandler_AlwaysReportsBatchComplete(t *testing.T) {
	runs := 0
	var runCtx context.Context
	runner := RunnerFunc(func(ctx context.Context) RunSummary {
		runs++
		runCtx = ctx
		return RunSummary{Attempted: 2, Failed: 2}
	})
	handler := NewHandler(runner, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	request := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	cancel()

	assert.Equal(t, 1, runs)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Batch complete", recorder.Body.String())
	assert.NoError(t, runCtx.Err(), "run is detached from the request")
}
