// go test github.com/homemade/smartsync/sync -v
package sync

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func testConfig(endpoint string, snapshotDir string) *Config {
	var config Config
	config.Warehouse.ProjectID = "wholesaling-data-warehouse"
	config.Warehouse.Dataset = "outreach"
	config.Warehouse.Table = "contacts"
	config.API.Keys.Smartlead = "test-key"
	config.API.Endpoints.Smartlead = endpoint
	config.Snapshots.Dir = snapshotDir
	return &config
}

func testSyncContext(t *testing.T, config *Config) *SyncContext {
	t.Helper()
	return &SyncContext{
		Config: config,
		Logger: zaptest.NewLogger(t).Sugar(),
		Batch:  NewBatch(time.Date(2024, 1, 5, 10, 7, 0, 0, time.UTC)),
	}
}

// fakeWarehouse records statements instead of running them.
type fakeWarehouse struct {
	statements []Statement
	affected   int64
	err        error
}

func (w *fakeWarehouse) Exec(ctx context.Context, stmt Statement) (int64, error) {
	w.statements = append(w.statements, stmt)
	return w.affected, w.err
}

func parameterValue(stmt Statement, name string) interface{} {
	for _, p := range stmt.Parameters {
		if p.Name == name {
			return p.Value
		}
	}
	return nil
}
