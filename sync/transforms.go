package sync

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// CreatedAtTimestampFormat is the microsecond UTC format of created_at.
	CreatedAtTimestampFormat = "2006-01-02T15:04:05.999999Z"
	UpdateDateFormat         = "2006-01-02"
	DefaultEmailStatus       = "Sent"
	DefaultEmailValidity     = "Valid"
)

// ContactUpdate is one row of a campaign batch update.
type ContactUpdate struct {
	Email          string
	Date           string
	Status         string
	SequenceNumber int
	Validity       string
}

// ContactTransformer maps leads export rows onto warehouse updates.
type ContactTransformer struct {
	Logger *zap.SugaredLogger
	// Now supplies the fallback date, defaults to time.Now.
	Now func() time.Time
}

func (t ContactTransformer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// ToUpdates keeps contacts that have an email and at least one sequence
// step sent. An unparsable created_at never drops a contact, today's date
// is used instead.
func (t ContactTransformer) ToUpdates(contacts []RawContact) []ContactUpdate {
	var result []ContactUpdate
	for _, contact := range contacts {
		email := strings.ToLower(strings.TrimSpace(contact.Email))
		sequenceNumber := parseSequenceNumber(contact.LastEmailSequenceSent)
		if email == "" || sequenceNumber <= 0 {
			continue
		}

		date, err := time.Parse(CreatedAtTimestampFormat, strings.TrimSpace(contact.CreatedAt))
		if err != nil {
			t.Logger.Warnf("Could not parse date for %s: %q (%v)", email, contact.CreatedAt, err)
			date = t.now().UTC()
		}

		result = append(result, ContactUpdate{
			Email:          email,
			Date:           date.Format(UpdateDateFormat),
			Status:         firstNonEmpty(contact.Category, contact.Status, DefaultEmailStatus),
			SequenceNumber: sequenceNumber,
			Validity:       firstNonEmpty(contact.EmailValidity, DefaultEmailValidity),
		})
	}
	return result
}

// parseSequenceNumber reads last_email_sequence_sent, treating anything
// that is not an integer as zero.
func parseSequenceNumber(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
