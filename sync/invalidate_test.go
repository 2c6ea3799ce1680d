package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInvalidEmails(t *testing.T) {
	input := "\xef\xbb\xbfname,email_address\n" +
		"A,Alice@Example.com\n" +
		"B,  \n" +
		"C,bob@example.com\n" +
		"D,alice@example.com \n" +
		"E\n"

	result, err := ReadInvalidEmails(strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, result)
}

func TestReadInvalidEmails_MissingColumn(t *testing.T) {
	for name, input := range map[string]string{
		"other columns": "email,name\nx@y.com,X\n",
		"empty file":    "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadInvalidEmails(strings.NewReader(input))
			assert.True(t, errors.Is(err, ErrMissingEmailColumn))
		})
	}
}

func TestInvalidateEmailsFromCSV(t *testing.T) {
	name := filepath.Join(t.TempDir(), DefaultInvalidEmailsFile)
	require.NoError(t, os.WriteFile(name, []byte("email_address\nA@y.com\nb@y.com\na@y.com\n"), 0o644))
	warehouse := &fakeWarehouse{affected: 2}
	updater := BigQueryUpdater{SyncContext: testSyncContext(t, testConfig("", "")), Warehouse: warehouse}

	affected, err := updater.InvalidateEmailsFromCSV(context.Background(), name)

	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	require.Len(t, warehouse.statements, 1)
	assert.Equal(t, []string{"a@y.com", "b@y.com"}, parameterValue(warehouse.statements[0], "emails"))
}

func TestInvalidateEmailsFromCSV_MissingFile(t *testing.T) {
	warehouse := &fakeWarehouse{}
	updater := BigQueryUpdater{SyncContext: testSyncContext(t, testConfig("", "")), Warehouse: warehouse}

	_, err := updater.InvalidateEmailsFromCSV(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))

	assert.Error(t, err)
	assert.Empty(t, warehouse.statements)
}

func TestInvalidateEmailsFromCSV_MissingColumnWritesNothing(t *testing.T) {
	name := filepath.Join(t.TempDir(), "emails.csv")
	require.NoError(t, os.WriteFile(name, []byte("email\nx@y.com\n"), 0o644))
	warehouse := &fakeWarehouse{}
	updater := BigQueryUpdater{SyncContext: testSyncContext(t, testConfig("", "")), Warehouse: warehouse}

	_, err := updater.InvalidateEmailsFromCSV(context.Background(), name)

	assert.True(t, errors.Is(err, ErrMissingEmailColumn))
	assert.Empty(t, warehouse.statements)
}
