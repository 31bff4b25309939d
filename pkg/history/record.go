package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

const (
	// DateLayout - layout of the Date column
	DateLayout = time.DateOnly
	// TimeLayout - layout of the Time column
	TimeLayout = time.TimeOnly
)

// Status - outcome stored with every row
type Status string

// StatusSuccess - the only status ever written
const StatusSuccess Status = "success"

// Header - first row of every scan log
var Header = []string{"Data", "Date", "Time", "Status"}

// ScanRecord - one row of the scan log, immutable once written
type ScanRecord struct {
	Data   string `json:"data"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status Status `json:"status"`
}

// NewScanRecord - successful ScanRecord stamped with the given moment
func NewScanRecord(data string, at time.Time) ScanRecord {
	return ScanRecord{
		Data:   data,
		Date:   at.Format(DateLayout),
		Time:   at.Format(TimeLayout),
		Status: StatusSuccess,
	}
}

// Fields - row representation in column order
func (r ScanRecord) Fields() []string {
	return []string{r.Data, r.Date, r.Time, string(r.Status)}
}

// Label - history line shown to the user
func (r ScanRecord) Label() string {
	return fmt.Sprintf("[%s %s] %s", r.Date, r.Time, r.Data)
}

// ScannedAt - Date and Time columns combined, in the local zone
func (r ScanRecord) ScannedAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, time.Local)
}

func parseRow(row []string) (ScanRecord, error) {
	if len(row) < 3 {
		return ScanRecord{}, fmt.Errorf("expected at least 3 fields, got %d", len(row))
	}
	rec := ScanRecord{
		Data:   row[0],
		Date:   strings.TrimSpace(row[1]),
		Time:   strings.TrimSpace(row[2]),
		Status: StatusSuccess,
	}
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		rec.Status = Status(strings.TrimSpace(row[3]))
	}
	return rec, nil
}

func isHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i := range Header {
		if strings.TrimSpace(row[i]) != Header[i] {
			return false
		}
	}
	return true
}

// Hash - murmur3 digest of a data value, stored with SQL rows and sent with scan events
func Hash(data string) uint64 {
	return murmur3.Sum64([]byte(data))
}
