package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatch(t *testing.T) {
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	batch := NewBatch(now)
	assert.Equal(t, "Batch_2024_01_05_1000", batch.ID)
	assert.Equal(t, now, batch.Timestamp)

	assert.Equal(t, "Batch_2024_12_31_2359", NewBatch(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)).ID)
}

func TestNewBigQueryWarehouse_MissingCredentialsFile(t *testing.T) {
	settings := WarehouseSettings{
		ProjectID:       "p",
		Dataset:         "d",
		Table:           "t",
		CredentialsFile: filepath.Join(t.TempDir(), "key.json"),
	}

	warehouse, err := NewBigQueryWarehouse(context.Background(), settings)

	require.Error(t, err)
	assert.Nil(t, warehouse)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestNewBigQueryWarehouse_MissingProject(t *testing.T) {
	_, err := NewBigQueryWarehouse(context.Background(), WarehouseSettings{})
	assert.Error(t, err)
}
