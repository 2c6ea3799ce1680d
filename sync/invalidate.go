package sync

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultInvalidEmailsFile is read from the working directory.
	DefaultInvalidEmailsFile = "catch_all_emails.csv"
	InvalidEmailsColumn      = "email_address"
)

var ErrMissingEmailColumn = errors.New("csv must contain an '" + InvalidEmailsColumn + "' column")

// ReadInvalidEmails reads the email_address column, lower cased, without
// blanks and without duplicates. Order of first appearance is kept.
func ReadInvalidEmails(r io.Reader) ([]string, error) {
	text, err := decodeText(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode csv")
	}
	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingEmailColumn
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv header")
	}
	column := -1
	for i, name := range header {
		if strings.TrimSpace(name) == InvalidEmailsColumn {
			column = i
			break
		}
	}
	if column == -1 {
		return nil, ErrMissingEmailColumn
	}

	seen := make(map[string]bool)
	var result []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read csv record")
		}
		if column >= len(record) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(record[column]))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		result = append(result, email)
	}
	return result, nil
}

// InvalidateEmailsFromCSV runs the manual catch-all correction for a CSV file.
func (u BigQueryUpdater) InvalidateEmailsFromCSV(ctx context.Context, name string) (int64, error) {
	u.Logger.Info("Starting email invalidation process")
	f, err := os.Open(name)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", name)
	}
	defer f.Close()

	emails, err := ReadInvalidEmails(f)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", name)
	}
	return u.InvalidateEmails(ctx, emails)
}
