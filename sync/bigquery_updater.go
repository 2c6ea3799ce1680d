package sync

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/bigquery"
	"github.com/cockroachdb/errors"
)

const (
	InvalidatedEmailStatus   = "Email Not Sent"
	InvalidatedEmailValidity = "Catch all"
)

// campaignUpdateRow is one element of the @updates array parameter.
// Every field is sent as STRING, the warehouse columns are text.
type campaignUpdateRow struct {
	Email         string `bigquery:"email"`
	Date          string `bigquery:"date"`
	EmailStatus   string `bigquery:"email_status"`
	SrNo          string `bigquery:"sr_no"`
	EmailValidity string `bigquery:"email_validity"`
}

// Emails are lower cased by the transformer, so the join lower cases the
// stored address too.
const campaignUpdateSQL = `UPDATE %s T
SET
    Email_status = updates.email_status,
    Campaign_ID = @campaign_id,
    Date = updates.date,
    Sr_No = updates.sr_no,
    email_validity = updates.email_validity
FROM UNNEST(@updates) AS updates
WHERE LOWER(T.email_address) = updates.email`

const invalidateEmailsSQL = `UPDATE %s
SET
    Email_status = @email_status,
    email_validity = @email_validity
WHERE LOWER(email_address) IN UNNEST(@emails)`

// DedupeUpdates keeps the last update for each email, in the position of
// its first occurrence. BigQuery rejects an UPDATE ... FROM where a target
// row matches more than one source row.
func DedupeUpdates(updates []ContactUpdate) []ContactUpdate {
	index := make(map[string]int, len(updates))
	var result []ContactUpdate
	for _, u := range updates {
		if i, exists := index[u.Email]; exists {
			result[i] = u
			continue
		}
		index[u.Email] = len(result)
		result = append(result, u)
	}
	return result
}

// BuildCampaignUpdateStatement builds the bulk update for one campaign.
func BuildCampaignUpdateStatement(tableID string, updates []ContactUpdate, campaignID string) Statement {
	rows := make([]campaignUpdateRow, 0, len(updates))
	for _, u := range DedupeUpdates(updates) {
		rows = append(rows, campaignUpdateRow{
			Email:         u.Email,
			Date:          u.Date,
			EmailStatus:   firstNonEmpty(u.Status, DefaultEmailStatus),
			SrNo:          strconv.Itoa(u.SequenceNumber),
			EmailValidity: firstNonEmpty(u.Validity, DefaultEmailValidity),
		})
	}
	return Statement{
		SQL: fmt.Sprintf(campaignUpdateSQL, tableID),
		Parameters: []bigquery.QueryParameter{
			{Name: "campaign_id", Value: campaignID},
			{Name: "updates", Value: rows},
		},
	}
}

// BuildInvalidationStatement builds the catch-all update for a list of
// lower cased emails.
func BuildInvalidationStatement(tableID string, emails []string) Statement {
	return Statement{
		SQL: fmt.Sprintf(invalidateEmailsSQL, tableID),
		Parameters: []bigquery.QueryParameter{
			{Name: "email_status", Value: InvalidatedEmailStatus},
			{Name: "email_validity", Value: InvalidatedEmailValidity},
			{Name: "emails", Value: emails},
		},
	}
}

// BigQueryUpdater writes contact updates to the warehouse table.
// It embeds *SyncContext for shared sync configuration.
type BigQueryUpdater struct {
	*SyncContext
	Warehouse Warehouse
}

// ApplyUpdates runs one bulk update for the campaign and waits for it.
func (u BigQueryUpdater) ApplyUpdates(ctx context.Context, updates []ContactUpdate, campaignID string) error {
	u.Logger.Infof("Performing batch update for %d contacts in BigQuery (campaign %s)", len(updates), campaignID)
	if len(updates) == 0 {
		u.Logger.Warn("No contacts to update for this campaign")
		return nil
	}
	tableID, err := u.Config.Warehouse.TableID()
	if err != nil {
		return err
	}
	stmt := BuildCampaignUpdateStatement(tableID, updates, campaignID)
	stmt.JobIDPrefix = fmt.Sprintf("%s_campaign_%s_", u.Batch.ID, campaignID)

	affected, err := u.Warehouse.Exec(ctx, stmt)
	if err != nil {
		return errors.Wrapf(err, "batch update failed for campaign %s", campaignID)
	}
	u.Logger.Infow("Batch update completed", "campaign_id", campaignID, "affected_rows", affected)
	return nil
}

// InvalidateEmails marks every row matching one of the emails as a
// catch-all address that was not sent to.
func (u BigQueryUpdater) InvalidateEmails(ctx context.Context, emails []string) (int64, error) {
	if len(emails) == 0 {
		u.Logger.Warn("No valid emails found in the CSV")
		return 0, nil
	}
	tableID, err := u.Config.Warehouse.TableID()
	if err != nil {
		return 0, err
	}
	stmt := BuildInvalidationStatement(tableID, emails)
	stmt.JobIDPrefix = fmt.Sprintf("%s_invalidate_", u.Batch.ID)

	u.Logger.Infof("Running update query for %d emails", len(emails))
	affected, err := u.Warehouse.Exec(ctx, stmt)
	if err != nil {
		return 0, errors.Wrap(err, "email invalidation failed")
	}
	u.Logger.Infof("Email_status updated to '%s' for %d matching records", InvalidatedEmailStatus, affected)
	return affected, nil
}
