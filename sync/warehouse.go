package sync

import (
	"context"
	"os"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/option"
)

// BatchIDTimestampFormat renders Batch_<year>_<month>_<day>_<hourminute>.
const BatchIDTimestampFormat = "2006_01_02_1504"

// Batch labels one run in the logs. It is not persisted.
type Batch struct {
	ID        string
	Timestamp time.Time
}

func NewBatch(now time.Time) Batch {
	return Batch{
		ID:        "Batch_" + now.Format(BatchIDTimestampFormat),
		Timestamp: now,
	}
}

// Statement is a parameterised query for the warehouse.
type Statement struct {
	SQL        string
	Parameters []bigquery.QueryParameter
	// JobIDPrefix is used to correlate warehouse jobs with a batch.
	JobIDPrefix string
}

// Warehouse executes DML statements and reports the affected row count.
type Warehouse interface {
	Exec(ctx context.Context, stmt Statement) (int64, error)
}

// BigQueryWarehouse runs statements through a BigQuery client.
type BigQueryWarehouse struct {
	client *bigquery.Client
}

// NewBigQueryWarehouse authenticates against BigQuery. A configured
// credentials file must exist, otherwise Application Default Credentials
// are used.
func NewBigQueryWarehouse(ctx context.Context, settings WarehouseSettings) (*BigQueryWarehouse, error) {
	if settings.ProjectID == "" {
		return nil, errors.New("missing warehouse project id")
	}
	var opts []option.ClientOption
	if settings.CredentialsFile != "" {
		if _, err := os.Stat(settings.CredentialsFile); err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(err, "failed to read credentials file %s", settings.CredentialsFile),
				"set GOOGLE_APPLICATION_CREDENTIALS to a service account key file")
		}
		opts = append(opts, option.WithCredentialsFile(settings.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, settings.ProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bigquery client")
	}
	return &BigQueryWarehouse{client: client}, nil
}

var invalidJobIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Exec runs the statement and waits for the job to complete.
func (w *BigQueryWarehouse) Exec(ctx context.Context, stmt Statement) (int64, error) {
	q := w.client.Query(stmt.SQL)
	q.Parameters = stmt.Parameters
	if stmt.JobIDPrefix != "" {
		q.JobID = invalidJobIDChars.ReplaceAllString(stmt.JobIDPrefix, "_")
		q.AddJobIDSuffix = true
	}
	job, err := q.Run(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to start bigquery job")
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "failed waiting for bigquery job %s", job.ID())
	}
	if err = status.Err(); err != nil {
		return 0, errors.Wrapf(err, "bigquery job %s failed", job.ID())
	}
	if status.Statistics == nil {
		return 0, nil
	}
	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}

func (w *BigQueryWarehouse) Close() error {
	return w.client.Close()
}
