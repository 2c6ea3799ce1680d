package sync

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// CampaignLister lists the campaigns to sync.
type CampaignLister interface {
	FetchActiveCampaigns(ctx context.Context) ([]Campaign, error)
}

// ContactFetcher fetches the raw contacts of a campaign.
type ContactFetcher interface {
	FetchContacts(ctx context.Context, campaignID string) ([]RawContact, error)
}

// UpdateApplier writes the updates of a campaign to the warehouse.
type UpdateApplier interface {
	ApplyUpdates(ctx context.Context, updates []ContactUpdate, campaignID string) error
}

// RunSummary reports what a run did. Failures only surface in the logs and
// here, a run itself never fails.
type RunSummary struct {
	Batch      Batch
	Listed     int
	Attempted  int
	Failed     int
	Updated    int
	ListingErr error
}

// Orchestrator syncs every active campaign in listing order, one at a time.
// It embeds *SyncContext for shared sync configuration.
type Orchestrator struct {
	*SyncContext
	Campaigns   CampaignLister
	Contacts    ContactFetcher
	Transformer ContactTransformer
	Updater     UpdateApplier
	// Wait pauses between campaigns, defaults to a context aware sleep.
	Wait func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the Smartlead fetcher and the BigQuery updater.
func NewOrchestrator(sc *SyncContext, warehouse Warehouse) *Orchestrator {
	fetcher := SmartleadFetcher{SyncContext: sc}
	return &Orchestrator{
		SyncContext: sc,
		Campaigns:   fetcher,
		Contacts:    fetcher,
		Transformer: ContactTransformer{Logger: sc.Logger},
		Updater:     BigQueryUpdater{SyncContext: sc, Warehouse: warehouse},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run lists the active campaigns once and processes each of them. A failing
// campaign is logged and skipped.
func (o *Orchestrator) Run(ctx context.Context) RunSummary {
	summary := RunSummary{Batch: o.Batch}
	o.Logger.Infof("Starting Smartlead pull batch: %s", o.Batch.ID)

	campaigns, err := o.Campaigns.FetchActiveCampaigns(ctx)
	if err != nil {
		summary.ListingErr = err
		o.Logger.Errorw("No campaigns fetched", "error", err)
		return summary
	}
	summary.Listed = len(campaigns)
	if len(campaigns) == 0 {
		o.Logger.Warn("No active campaigns found to process")
		return summary
	}
	o.Logger.Infof("Active campaigns detected: %+v", campaigns)

	wait := o.Wait
	if wait == nil {
		wait = sleepContext
	}
	waitFor := time.Duration(o.Config.API.WaitSeconds) * time.Second

	for i, campaign := range campaigns {
		o.Logger.Infof("=== [%d/%d] Processing Campaign: '%s' (ID: %s) ===", i+1, len(campaigns), campaign.Name, campaign.ID)
		summary.Attempted++

		updated, err := o.processCampaign(ctx, campaign)
		if err != nil {
			summary.Failed++
			o.Logger.Errorw("Error processing campaign", "campaign_id", campaign.ID, "error", err)
		} else if updated {
			summary.Updated++
		}

		if waitFor > 0 {
			o.Logger.Infof("Sleeping %ds before next campaign", o.Config.API.WaitSeconds)
			if err := wait(ctx, waitFor); err != nil {
				o.Logger.Warnw("Run cancelled", "error", err)
				break
			}
		}
	}

	o.Logger.Infow("Batch complete",
		"batch_id", o.Batch.ID,
		"attempted", summary.Attempted,
		"updated", summary.Updated,
		"failed", summary.Failed)
	return summary
}

// processCampaign runs fetch, transform and update for one campaign,
// turning a panic into an error so the next campaign still runs.
func (o *Orchestrator) processCampaign(ctx context.Context, campaign Campaign) (updated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic while processing campaign %s: %v", campaign.ID, r)
		}
	}()

	contacts, err := o.Contacts.FetchContacts(ctx, campaign.ID)
	if err != nil {
		return false, err
	}
	o.Logger.Infof("Pulled %d contacts from Smartlead for campaign %s", len(contacts), campaign.ID)

	updates := o.Transformer.ToUpdates(contacts)
	o.Logger.Infof("Prepared %d updates for BigQuery (campaign %s)", len(updates), campaign.ID)
	if len(updates) == 0 {
		o.Logger.Infof("No qualifying updates for campaign %s (no sent steps)", campaign.ID)
		return false, nil
	}

	if err := o.Updater.ApplyUpdates(ctx, updates, campaign.ID); err != nil {
		return false, err
	}
	return true, nil
}
