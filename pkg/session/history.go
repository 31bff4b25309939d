package session

import (
	"fmt"

	"github.com/igorvan/qrscan/pkg/history"
)

// Row - history line as shown to the user, newest first
type Row struct {
	Record   history.ScanRecord `json:"record"`
	Label    string             `json:"label"`
	Selected bool               `json:"selected"`
}

// buildRows - projects the log newest first, keeping the selection of data values still present
func buildRows(records []history.ScanRecord, previous []Row) []Row {
	selected := map[string]bool{}
	for _, r := range previous {
		if r.Selected {
			selected[r.Record.Data] = true
		}
	}
	rows := make([]Row, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		rows = append(rows, Row{
			Record:   rec,
			Label:    rec.Label(),
			Selected: selected[rec.Data],
		})
	}
	return rows
}

func selectedData(rows []Row) []string {
	var res []string
	seen := map[string]bool{}
	for _, r := range rows {
		if r.Selected && !seen[r.Record.Data] {
			seen[r.Record.Data] = true
			res = append(res, r.Record.Data)
		}
	}
	return res
}

func checkRow(rows []Row, i int) error {
	if i < 0 || i >= len(rows) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchRow, i, len(rows))
	}
	return nil
}
