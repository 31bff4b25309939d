package processing

import (
	"context"
	"fmt"
	"sync"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/logging"
	"github.com/igorvan/qrscan/pkg/scanning"
)

// Receiver - receives published scan events and mirrors them into some storage.
// Pub/Sub delivers at least once: an event id already processed is skipped, and so is a
// record already present in the storage, which covers redeliveries after a restart.
// A payload deleted and scanned again arrives with a new id and a new timestamp and is appended.
type Receiver struct {
	mtx     sync.Mutex
	storage Storage
	ids     map[string]struct{}
	records map[history.ScanRecord]struct{}
	log     logging.Logger
}

// New - Receiver constructor
func New(storage Storage, log logging.Logger) (*Receiver, error) {
	if storage == nil {
		return nil, fmt.Errorf("cannot instantiate a Receiver, no storage provided")
	}
	return &Receiver{
		storage: storage,
		ids:     map[string]struct{}{},
		records: map[history.ScanRecord]struct{}{},
		log:     logging.NullSafe(log),
	}, nil
}

// Load - initializes the storage and remembers what it already holds
func (r *Receiver) Load(ctx context.Context) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.storage.Initialize(ctx); err != nil {
		return fmt.Errorf("cannot initialize mirror storage: %w", err)
	}
	records, err := r.storage.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("cannot load mirror storage: %w", err)
	}
	known := make(map[history.ScanRecord]struct{}, len(records))
	for _, rec := range records {
		known[rec] = struct{}{}
	}
	r.records = known
	r.log.Info("mirror loaded", "records", len(records))
	return nil
}

// Process - store a scan event's record in a storage
// returns 1 if the record was appended, 0 if the event was already mirrored
// in case if storage operation fails - returns an error
func (r *Receiver) Process(ctx context.Context, event scanning.ScanEvent) (int64, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.ids[event.ID]; ok && event.ID != "" {
		r.log.Info("scan event already mirrored", "id", event.ID)
		return 0, nil
	}
	if _, ok := r.records[event.Record]; ok {
		r.log.Info("scan record already mirrored", "id", event.ID)
		r.ids[event.ID] = struct{}{}
		return 0, nil
	}
	if err := r.storage.Append(ctx, event.Record); err != nil {
		return 0, err
	}
	r.ids[event.ID] = struct{}{}
	r.records[event.Record] = struct{}{}
	return 1, nil
}
