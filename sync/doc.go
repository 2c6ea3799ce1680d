package sync

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
)

// ColumnDocRow represents a single row in the column mapping documentation.
type ColumnDocRow struct {
	BigQueryColumn  string // Column in the warehouse table (e.g., "Email_status")
	SmartleadSource string // Leads export column(s) or "(run)" for run level values
	Notes           string // Fallbacks and parsing rules
	IsJoinKey       bool   // Whether the column identifies the row
}

// ColumnDocumentation contains the column documentation for one table.
type ColumnDocumentation struct {
	TableID string
	Rows    []ColumnDocRow
}

// GenerateColumnDocumentation describes how a leads export row lands in the warehouse table.
func GenerateColumnDocumentation(config Config) ColumnDocumentation {
	doc := ColumnDocumentation{
		TableID: fmt.Sprintf("%s.%s.%s", config.Warehouse.ProjectID, config.Warehouse.Dataset, config.Warehouse.Table),
	}

	notes := map[string]ColumnDocRow{
		"email_address": {
			SmartleadSource: ColumnEmail,
			Notes:           "Lower cased, matched case-insensitively; rows without an email are skipped",
			IsJoinKey:       true,
		},
		"Email_status": {
			SmartleadSource: fmt.Sprintf("%s | %s", ColumnCategory, ColumnStatus),
			Notes:           fmt.Sprintf("Falls back to %q", DefaultEmailStatus),
		},
		"Campaign_ID": {
			SmartleadSource: "(run)",
			Notes:           "Id of the active campaign being synced",
		},
		"Date": {
			SmartleadSource: ColumnCreatedAt,
			Notes:           fmt.Sprintf("Formatted as %s, falls back to the run date when unparsable", UpdateDateFormat),
		},
		"Sr_No": {
			SmartleadSource: ColumnLastEmailSequenceSent,
			Notes:           "Rows with no sent sequence step are skipped",
		},
		"email_validity": {
			SmartleadSource: ColumnEmailValidity,
			Notes:           fmt.Sprintf("Falls back to %q", DefaultEmailValidity),
		},
	}

	for _, column := range sortedKeys(notes) {
		row := notes[column]
		row.BigQueryColumn = column
		doc.Rows = append(doc.Rows, row)
	}

	// Join key first, then alphabetically by column
	sort.SliceStable(doc.Rows, func(i, j int) bool {
		if doc.Rows[i].IsJoinKey != doc.Rows[j].IsJoinKey {
			return doc.Rows[i].IsJoinKey
		}
		return doc.Rows[i].BigQueryColumn < doc.Rows[j].BigQueryColumn
	})

	return doc
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatCSV formats the column documentation as CSV.
func (d ColumnDocumentation) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{fmt.Sprintf("# Table: %s", d.TableID)}); err != nil {
		return "", err
	}
	if err := writer.Write([]string{"BigQuery Column", "Join Key", "Smartlead Source", "Mapping Notes"}); err != nil {
		return "", err
	}
	for _, row := range d.Rows {
		joinKeyMark := ""
		if row.IsJoinKey {
			joinKeyMark = "yes"
		}
		if err := writer.Write([]string{row.BigQueryColumn, joinKeyMark, row.SmartleadSource, row.Notes}); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
