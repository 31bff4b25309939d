package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/igorvan/qrscan/pkg/logging"
)

const fileMode = 0o644

// FileStore - scan log kept in a flat CSV file with a header row.
// Appends go to the end of the file, deletions rewrite it through a temp file and a rename.
type FileStore struct {
	path string
	log  logging.Logger
	mu   sync.Mutex
}

// NewFileStore - FileStore constructor, the file itself is created by Initialize
func NewFileStore(path string, log logging.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("no scan log path provided")
	}
	return &FileStore{path: path, log: logging.NullSafe(log)}, nil
}

// Path - location of the log file
func (s *FileStore) Path() string {
	return s.path
}

// Initialize - creates the log with a header if it is absent or empty, safe to call repeatedly
func (s *FileStore) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialize()
}

func (s *FileStore) initialize() error {
	info, err := os.Stat(s.path)
	switch {
	case err == nil && info.Size() > 0:
		return s.repairHeader()
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat scan log %s: %w", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create scan log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("failed to create scan log %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write scan log header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write scan log header: %w", err)
	}
	s.log.Info("scan log created", "path", s.path)
	return nil
}

// repairHeader - prepends the header to a log whose first row is data
func (s *FileStore) repairHeader() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open scan log %s: %w", s.path, err)
	}
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	first, err := reader.Read()
	_ = f.Close()
	if err == nil && isHeader(first) {
		return nil
	}

	rows, err := s.readRows()
	if err != nil {
		return err
	}
	if err := s.rewrite(append([][]string{Header}, rows...)); err != nil {
		return err
	}
	s.log.Warn("scan log header was missing and has been restored", "path", s.path)
	return nil
}

// LoadAll - every record in append order, a missing file is an empty log
func (s *FileStore) LoadAll(ctx context.Context) ([]ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}
	rows = dataRows(rows)
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]ScanRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRow(row)
		if err != nil {
			s.log.Warn("skipping malformed scan log row", "path", s.path, "row", i+1, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append - adds one record to the end of the log
func (s *FileStore) Append(ctx context.Context, rec ScanRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initialize(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("failed to open scan log %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rec.Fields()); err != nil {
		return fmt.Errorf("failed to append scan record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to append scan record: %w", err)
	}
	return nil
}

// DeleteWhere - removes every row whose data matches, keeps the order of the remainder,
// returns the number of removed rows. The log is left untouched when the rewrite fails.
func (s *FileStore) DeleteWhere(ctx context.Context, match func(data string) bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	kept := make([][]string, 0, len(rows)+1)
	kept = append(kept, Header)
	removed := 0
	for _, row := range dataRows(rows) {
		if len(row) > 0 && match(row[0]) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.rewrite(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// readRows - raw rows including the header if any; a missing file yields no rows
func (s *FileStore) readRows() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Warn("scan log not found, no data loaded", "path", s.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open scan log %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.log.Warn("skipping unreadable scan log line", "path", s.path, "line", parseErr.Line, "error", err)
				continue
			}
			return nil, fmt.Errorf("failed to read scan log %s: %w", s.path, err)
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 && !isHeader(rows[0]) {
		s.log.Warn("scan log has no header, first row is read as data", "path", s.path, "row", rows[0])
	}
	return rows, nil
}

// dataRows - rows without the header, a headerless log is all data
func dataRows(rows [][]string) [][]string {
	if len(rows) > 0 && isHeader(rows[0]) {
		return rows[1:]
	}
	return rows
}

func (s *FileStore) rewrite(rows [][]string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary scan log: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write temporary scan log: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary scan log: %w", err)
	}
	if err = tmp.Chmod(fileMode); err != nil {
		return fmt.Errorf("failed to chmod temporary scan log: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary scan log: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace scan log %s: %w", s.path, err)
	}
	return nil
}
