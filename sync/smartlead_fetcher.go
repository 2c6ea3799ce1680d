package sync

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	SmartleadCampaignsPath    = "/api/v1/campaigns/"
	SmartleadLeadsExportPathf = "/api/v1/campaigns/%s/leads-export"
	SmartleadActiveStatus     = "ACTIVE"
)

// Column names in the Smartlead leads export, snake cased.
const (
	ColumnEmail                 = "email"
	ColumnLastEmailSequenceSent = "last_email_sequence_sent"
	ColumnCreatedAt             = "created_at"
	ColumnCategory              = "category"
	ColumnStatus                = "status"
	ColumnEmailValidity         = "email_validity"
)

type SmartleadError map[string]interface{}

// Campaign is an active Smartlead campaign.
type Campaign struct {
	ID   string
	Name string
}

// ContactColumn is one cell of a leads export row, keyed by its header as exported.
type ContactColumn struct {
	Name  string
	Value string
}

// RawContact is a leads export row. The fields read by the transformer are
// lifted out at parse time, an absent column reads as the empty string.
type RawContact struct {
	Email                 string
	LastEmailSequenceSent string
	CreatedAt             string
	Category              string
	Status                string
	EmailValidity         string
	// Columns holds every cell in export order.
	Columns []ContactColumn
}

// NormalizeColumnName maps header variants such as "Email_Validity",
// "Email Validity" and "emailValidity" onto one snake cased name.
func NormalizeColumnName(header string) string {
	return strcase.ToSnake(strings.TrimSpace(header))
}

func newRawContact(header []string, record []string) RawContact {
	var result RawContact
	for i, name := range header {
		if i >= len(record) {
			break
		}
		value := record[i]
		result.Columns = append(result.Columns, ContactColumn{Name: name, Value: value})
		switch NormalizeColumnName(name) {
		case ColumnEmail:
			result.Email = value
		case ColumnLastEmailSequenceSent:
			result.LastEmailSequenceSent = value
		case ColumnCreatedAt:
			result.CreatedAt = value
		case ColumnCategory:
			result.Category = value
		case ColumnStatus:
			result.Status = value
		case ColumnEmailValidity:
			result.EmailValidity = value
		}
	}
	return result
}

// decodeText decodes UTF-8, replacing invalid bytes with U+FFFD and
// dropping a leading byte order mark.
func decodeText(r io.Reader) ([]byte, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return io.ReadAll(transform.NewReader(r, decoder))
}

// ParseContactsCSV parses a leads export. The first record is the header.
func ParseContactsCSV(r io.Reader) ([]string, []RawContact, error) {
	text, err := decodeText(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode leads export")
	}
	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse leads export csv")
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	header := records[0]
	contacts := make([]RawContact, 0, len(records)-1)
	for _, record := range records[1:] {
		contacts = append(contacts, newRawContact(header, record))
	}
	return header, contacts, nil
}

// SmartleadFetcher handles all Smartlead API operations.
// It embeds *SyncContext for shared sync configuration.
type SmartleadFetcher struct {
	*SyncContext
}

// SmartleadAPIBuilder returns a new requests.Builder configured for the Smartlead API.
// A zero timeout leaves the client default in place.
func (s SmartleadFetcher) SmartleadAPIBuilder(timeout time.Duration) *requests.Builder {
	result := requests.
		URL(s.Config.API.Endpoints.Smartlead).
		Client(&http.Client{Timeout: timeout}).
		Param("api_key", s.Config.API.Keys.Smartlead)
	if s.RecordRequests {
		result = result.Transport(requests.Record(nil, fmt.Sprintf("testdata/.requests/%s/smartlead", s.Batch.ID)))
	}
	return result
}

// FetchActiveCampaigns lists campaigns and keeps those with status ACTIVE.
// Only the first page of the listing is read.
func (s SmartleadFetcher) FetchActiveCampaigns(ctx context.Context) ([]Campaign, error) {
	s.Logger.Info("Fetching active campaigns from Smartlead API")
	smartleadError := SmartleadError{}
	var json string
	err := s.SmartleadAPIBuilder(0).
		Path(SmartleadCampaignsPath).
		Header("Accept", "application/json").
		ToString(&json).
		ErrorJSON(&smartleadError).
		Fetch(ctx)
	if err != nil {
		s.Logger.Errorw("Error fetching campaigns", "error", err, "smartlead_error", smartleadError)
		return nil, errors.Wrap(err, "failed to fetch campaigns")
	}
	if !gjson.Valid(json) || !gjson.Parse(json).IsArray() {
		s.Logger.Errorf("Invalid Smartlead campaigns response:\n%s", json)
		return nil, errors.New("invalid campaigns response, expected a json array")
	}

	var result []Campaign
	for _, v := range gjson.Get(json, fmt.Sprintf(`#(status==%q)#`, SmartleadActiveStatus)).Array() {
		id := v.Get("id")
		if !id.Exists() || id.Type == gjson.Null || id.String() == "" {
			s.Logger.Warnf("Skipping an active campaign without an id: %s", v.Raw)
			continue
		}
		campaign := Campaign{ID: id.String(), Name: v.Get("name").String()}
		s.Logger.Infof("Campaign '%s' (ID: %s) is active", campaign.Name, campaign.ID)
		result = append(result, campaign)
	}
	if len(result) == 0 {
		s.Logger.Info("No active campaigns found")
	}
	return result, nil
}

// FetchContacts downloads the leads export of a campaign, truncates it to
// the configured email limit and writes a debug snapshot.
func (s SmartleadFetcher) FetchContacts(ctx context.Context, campaignID string) ([]RawContact, error) {
	s.Logger.Infof("Fetching contacts from Smartlead API for campaign_id=%s", campaignID)
	smartleadError := SmartleadError{}
	var body bytes.Buffer
	err := s.SmartleadAPIBuilder(HTTPRequestTimeout).
		Pathf(SmartleadLeadsExportPathf, url.PathEscape(campaignID)).
		Header("Accept", "text/plain").
		ToBytesBuffer(&body).
		ErrorJSON(&smartleadError).
		Fetch(ctx)
	if err != nil {
		s.Logger.Errorw("Error fetching contacts", "campaign_id", campaignID, "error", err, "smartlead_error", smartleadError)
		return nil, errors.Wrapf(err, "failed to fetch leads export for campaign %s", campaignID)
	}

	_, contacts, err := ParseContactsCSV(&body)
	if err != nil {
		s.Logger.Errorw("Error parsing leads export", "campaign_id", campaignID, "error", err)
		return nil, errors.Wrapf(err, "campaign %s", campaignID)
	}

	if limit := s.Config.API.EmailLimit; limit > 0 && len(contacts) > limit {
		contacts = contacts[:limit]
	}
	s.Logger.Infof("Parsed %d contacts from CSV export (campaign %s)", len(contacts), campaignID)

	if err := WriteContactsSnapshot(s.Config.Snapshots.Dir, campaignID, contacts); err != nil {
		s.Logger.Warnf("Could not write %s: %v", SnapshotFileName(campaignID), err)
	}
	return contacts, nil
}
