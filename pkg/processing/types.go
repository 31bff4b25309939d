package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/scanning"
)

// ErrBadEvent - the message body is not a usable scan event, redelivery will not help
var ErrBadEvent = errors.New("malformed scan event")

// Storage - mirror storage for received scan records
type Storage interface {
	Initialize(ctx context.Context) error
	LoadAll(ctx context.Context) ([]history.ScanRecord, error)
	Append(ctx context.Context, rec history.ScanRecord) error
}

// ParseEvent - decodes a published scan event and checks its record
func ParseEvent(b []byte) (scanning.ScanEvent, error) {
	var event scanning.ScanEvent
	if err := json.Unmarshal(b, &event); err != nil {
		return scanning.ScanEvent{}, fmt.Errorf("%w: %s", ErrBadEvent, err)
	}
	data, err := scanning.DecodePayload([]byte(event.Record.Data))
	if err != nil {
		return scanning.ScanEvent{}, fmt.Errorf("%w: %s", ErrBadEvent, err)
	}
	event.Record.Data = data
	if _, err := event.Record.ScannedAt(); err != nil {
		return scanning.ScanEvent{}, fmt.Errorf("%w: bad timestamp: %s", ErrBadEvent, err)
	}
	if event.Record.Status == "" {
		event.Record.Status = history.StatusSuccess
	}
	return event, nil
}
