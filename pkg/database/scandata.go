package database

// ScanData - database table data representation
type ScanData struct {
	ID     int64  `sql:"id"`
	Hash   uint64 `sql:"hash"`
	Data   string `sql:"data"`
	Date   string `sql:"scan_date"`
	Time   string `sql:"scan_time"`
	Status string `sql:"status"`
}
