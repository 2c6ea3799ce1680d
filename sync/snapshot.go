package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

func SnapshotFileName(campaignID string) string {
	return fmt.Sprintf("contacts_%s.json", strings.NewReplacer("/", "_", `\`, "_").Replace(campaignID))
}

// escapePathComponent escapes characters sjson treats as path syntax so a
// CSV header is always used as a literal key.
func escapePathComponent(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '!', '\\', ':', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ContactsSnapshotJSON renders the contacts as an indented JSON array of
// objects, keeping the columns in export order.
func ContactsSnapshotJSON(contacts []RawContact) ([]byte, error) {
	result := []byte(`[]`)
	for i, contact := range contacts {
		row := []byte(`{}`)
		var err error
		for _, column := range contact.Columns {
			if column.Name == "" {
				continue
			}
			row, err = sjson.SetBytes(row, escapePathComponent(column.Name), column.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode column %q of row %d", column.Name, i)
			}
		}
		result, err = sjson.SetRawBytes(result, "-1", row)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to append row %d", i)
		}
	}
	return pretty.Pretty(result), nil
}

// WriteContactsSnapshot writes contacts_<campaign>.json into dir.
func WriteContactsSnapshot(dir string, campaignID string, contacts []RawContact) error {
	b, err := ContactsSnapshotJSON(contacts)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = "."
	}
	return os.WriteFile(filepath.Join(dir, SnapshotFileName(campaignID)), b, 0o644)
}
