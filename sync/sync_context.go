package sync

import "go.uber.org/zap"

// SyncContext holds shared sync configuration for one run.
// It is immutable after construction.
type SyncContext struct {
	Config         *Config
	Logger         *zap.SugaredLogger
	Batch          Batch
	RecordRequests bool
}
