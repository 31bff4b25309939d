package scanning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/logging"
)

// Storage - scan log storage
type Storage interface {
	Initialize(ctx context.Context) error
	LoadAll(ctx context.Context) ([]history.ScanRecord, error)
	Append(ctx context.Context, rec history.ScanRecord) error
	DeleteWhere(ctx context.Context, match func(data string) bool) (int, error)
}

// PublishTimeout - upper bound for delivering one scan event
const PublishTimeout = 10 * time.Second

// Publisher - receives an event for every newly recorded scan
type Publisher interface {
	Publish(ctx context.Context, event ScanEvent) error
}

// Clock - time source, replaceable in tests
type Clock interface {
	Now() time.Time
}

// SystemClock - Clock backed by time.Now
type SystemClock struct{}

// Now - current local time
func (SystemClock) Now() time.Time { return time.Now() }

// ScanEvent - published representation of a new scan
type ScanEvent struct {
	ID     string             `json:"id"`
	Record history.ScanRecord `json:"record"`
}

// Outcome - result of RecordScan
type Outcome int

const (
	// OutcomeFailed - the scan could not be stored
	OutcomeFailed Outcome = iota
	// OutcomeNew - first time this payload is seen, a row was appended
	OutcomeNew
	// OutcomeDuplicate - payload already in the log, nothing changed
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Recorder - deduplicates scanned payloads against the log and appends the new ones.
// Not safe for concurrent use, the owning session serialises calls.
type Recorder struct {
	storage   Storage
	seen      *SeenSet
	clock     Clock
	publisher Publisher
	log       logging.Logger
	inFlight  sync.WaitGroup
}

// Option - Recorder configuration
type Option func(*Recorder)

// WithClock - overrides the time source
func WithClock(c Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithPublisher - publishes an event for every new scan
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// WithLogger - logger injection
func WithLogger(l logging.Logger) Option {
	return func(r *Recorder) { r.log = logging.NullSafe(l) }
}

// New - Recorder constructor
func New(storage Storage, opts ...Option) (*Recorder, error) {
	if storage == nil {
		return nil, fmt.Errorf("cannot instantiate a Recorder, no storage provided")
	}
	r := &Recorder{
		storage: storage,
		seen:    NewSeenSet(),
		clock:   SystemClock{},
		log:     logging.NullSafe(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Load - initializes the storage and rebuilds the SeenSet from it
func (r *Recorder) Load(ctx context.Context) error {
	if err := r.storage.Initialize(ctx); err != nil {
		return fmt.Errorf("cannot initialize scan log: %w", err)
	}
	records, err := r.storage.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("cannot load scan log: %w", err)
	}
	seen := NewSeenSet()
	for _, rec := range records {
		if data, err := normalize(rec.Data); err == nil {
			seen.Add(data)
		}
	}
	r.seen = seen
	r.log.Info("scanned data loaded", "records", len(records), "distinct", seen.Len())
	return nil
}

// RecordScan - OutcomeDuplicate when data was seen before, otherwise appends a record and returns OutcomeNew.
// On storage failure the SeenSet is left as it was and OutcomeFailed is returned with the error.
func (r *Recorder) RecordScan(ctx context.Context, data string) (Outcome, history.ScanRecord, error) {
	data, err := normalize(data)
	if err != nil {
		return OutcomeFailed, history.ScanRecord{}, err
	}
	if r.seen.Contains(data) {
		return OutcomeDuplicate, history.ScanRecord{}, nil
	}

	rec := history.NewScanRecord(data, r.clock.Now())
	r.seen.Add(data)
	if err := r.storage.Append(ctx, rec); err != nil {
		r.seen.Remove(data)
		return OutcomeFailed, history.ScanRecord{}, fmt.Errorf("cannot append scan record: %w", err)
	}

	if r.publisher != nil {
		r.publish(ctx, ScanEvent{ID: uuid.NewString(), Record: rec})
	}
	return OutcomeNew, rec, nil
}

// publish - delivers the event in the background, the scan is already stored
func (r *Recorder) publish(ctx context.Context, event ScanEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	r.inFlight.Add(1)
	go func() {
		defer r.inFlight.Done()
		defer cancel()
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.log.Error("cannot publish scan event", "id", event.ID, "error", err)
		}
	}()
}

// Wait - blocks until every scan event handed to the publisher is delivered or given up
func (r *Recorder) Wait() {
	r.inFlight.Wait()
}

// Delete - removes every row holding one of the values from the log, then from the SeenSet.
// The SeenSet is only touched once the log rewrite succeeded.
func (r *Recorder) Delete(ctx context.Context, values []string) (int, error) {
	targets := make(map[string]struct{}, len(values))
	for _, v := range values {
		targets[strings.TrimSpace(v)] = struct{}{}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	n, err := r.storage.DeleteWhere(ctx, func(data string) bool {
		_, ok := targets[strings.TrimSpace(data)]
		return ok
	})
	if err != nil {
		return 0, fmt.Errorf("cannot delete scan records: %w", err)
	}
	for v := range targets {
		r.seen.Remove(v)
	}
	return n, nil
}

// Records - current log content in append order
func (r *Recorder) Records(ctx context.Context) ([]history.ScanRecord, error) {
	return r.storage.LoadAll(ctx)
}

// Seen - true if data is already recorded
func (r *Recorder) Seen(data string) bool {
	data, err := normalize(data)
	return err == nil && r.seen.Contains(data)
}

// Len - number of distinct recorded payloads
func (r *Recorder) Len() int {
	return r.seen.Len()
}

// Values - sorted snapshot of the SeenSet
func (r *Recorder) Values() []string {
	return r.seen.Values()
}
