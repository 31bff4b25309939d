package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/igorvan/qrscan/pkg/device"
	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/logging"
	"github.com/igorvan/qrscan/pkg/scanning"
)

const (
	// DefaultPollInterval - one tick per camera frame at 30 fps
	DefaultPollInterval = time.Second / 30
	// DefaultMaxReadFailures - about one second of unreadable frames at the default interval
	DefaultMaxReadFailures = 30
)

// Status messages shown to the user
const (
	MsgReady           = "Scan a QR code"
	MsgScanning        = "Scanning..."
	MsgCameraNotFound  = "Error: Camera not found."
	MsgCameraLost      = "Error: Camera stopped responding."
	MsgStopped         = "Scan stopped."
	MsgAlreadyScanned  = "Already Scanned"
	MsgScanSuccessful  = "Scan Successful!"
	MsgSaveFailed      = "Error: Could not save scan."
	MsgHistoryFailed   = "Error: Could not load history."
	MsgAllSelected     = "All items selected."
	MsgNothingSelected = "No items selected for deletion."
	MsgDeleteFailed    = "Error deleting items."
	MsgEnterCode       = "Enter a code to save."
)

var (
	// ErrClosed - the session was torn down
	ErrClosed = errors.New("session closed")
	// ErrNoSuchRow - history row index out of range
	ErrNoSuchRow = errors.New("no such history row")
)

// State - camera state
type State int

const (
	// Idle - camera released
	Idle State = iota
	// Scanning - camera held and polled every tick
	Scanning
)

func (s State) String() string {
	if s == Scanning {
		return "scanning"
	}
	return "idle"
}

// StatusKind - severity of the status line
type StatusKind string

const (
	// StatusInfo - neutral message
	StatusInfo StatusKind = "info"
	// StatusSuccess - positive outcome
	StatusSuccess StatusKind = "success"
	// StatusError - something went wrong
	StatusError StatusKind = "error"
)

// Status - status line
type Status struct {
	Kind StatusKind `json:"kind"`
	Text string     `json:"text"`
}

// Config - session tuning
type Config struct {
	DeviceIndex     int
	PollInterval    time.Duration
	MaxReadFailures int
}

// Snapshot - copy of the session state for rendering
type Snapshot struct {
	ID             string              `json:"id"`
	State          string              `json:"state"`
	Status         Status              `json:"status"`
	TorchOn        bool                `json:"torch_on"`
	TorchAvailable bool                `json:"torch_available"`
	Rows           []Row               `json:"rows"`
	Result         *history.ScanRecord `json:"result,omitempty"`
}

// Session - scanner application state: camera lifecycle, dedup recorder, history rows and
// the status line. Commands are serialised by a mutex, so one Run loop and any number of
// command surfaces may share a session.
type Session struct {
	mu sync.Mutex

	id       string
	cfg      Config
	recorder *scanning.Recorder
	camera   device.FrameSource
	decoder  device.Decoder
	torch    device.Torch
	feedback device.Feedback
	log      logging.Logger

	state         State
	handle        device.Handle
	torchOn       bool
	status        Status
	rows          []Row
	result        *history.ScanRecord
	readFailures  int
	lastDuplicate string
	closed        bool
}

// Option - Session configuration
type Option func(*Session)

// WithConfig - overrides the defaults, zero values keep them
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg.DeviceIndex = cfg.DeviceIndex
		if cfg.PollInterval > 0 {
			s.cfg.PollInterval = cfg.PollInterval
		}
		if cfg.MaxReadFailures != 0 {
			s.cfg.MaxReadFailures = cfg.MaxReadFailures
		}
	}
}

// WithTorch - flashlight capability, absent by default
func WithTorch(t device.Torch) Option {
	return func(s *Session) { s.torch = t }
}

// WithFeedback - audible feedback, silent by default
func WithFeedback(f device.Feedback) Option {
	return func(s *Session) { s.feedback = f }
}

// WithLogger - logger injection
func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.log = logging.NullSafe(l) }
}

// New - Session constructor
func New(recorder *scanning.Recorder, camera device.FrameSource, decoder device.Decoder, opts ...Option) (*Session, error) {
	if recorder == nil {
		return nil, fmt.Errorf("cannot instantiate a Session, no recorder provided")
	}
	if camera == nil || decoder == nil {
		return nil, fmt.Errorf("cannot instantiate a Session, no camera or decoder provided")
	}
	s := &Session{
		id:       uuid.NewString(),
		recorder: recorder,
		camera:   camera,
		decoder:  decoder,
		torch:    device.NoTorch{},
		feedback: device.Silent{},
		cfg: Config{
			PollInterval:    DefaultPollInterval,
			MaxReadFailures: DefaultMaxReadFailures,
		},
		status: Status{Kind: StatusInfo, Text: MsgReady},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.NullSafe(nil)
	}
	return s, nil
}

// ID - session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Open - loads the scan log and the history rows
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recorder.Load(ctx); err != nil {
		s.log.Error("cannot load scanned data", "session", s.id, "error", err)
		s.setStatus(StatusError, MsgHistoryFailed)
		return err
	}
	s.reloadHistory(ctx)
	return nil
}

// Start - acquires the camera and enters Scanning
func (s *Session) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.state == Scanning {
		s.log.Info("camera is already running", "session", s.id)
		return nil
	}

	h, err := s.camera.Open(s.cfg.DeviceIndex)
	if err != nil {
		s.log.Error("could not open camera", "session", s.id, "device", s.cfg.DeviceIndex, "error", err)
		s.setStatus(StatusError, MsgCameraNotFound)
		return err
	}

	s.handle = h
	s.state = Scanning
	s.readFailures = 0
	s.lastDuplicate = ""
	s.result = nil
	s.setStatus(StatusInfo, MsgScanning)
	s.log.Info("camera successfully started", "session", s.id, "device", s.cfg.DeviceIndex)
	return nil
}

// Stop - releases the camera and turns the flashlight off
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop(StatusInfo, MsgStopped)
}

func (s *Session) stop(kind StatusKind, text string) {
	if s.handle != nil {
		if err := s.camera.Release(s.handle); err != nil {
			s.log.Error("could not release camera", "session", s.id, "error", err)
		}
		s.handle = nil
		s.log.Info("camera released", "session", s.id)
	}
	s.state = Idle
	if s.torchOn {
		s.setTorch(false)
	}
	s.setStatus(kind, text)
}

// Tick - one camera poll: read a frame, decode it, record the first code found.
// A new code stops scanning and leaves the record in Result.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Scanning {
		return
	}

	frame, err := s.camera.Read(s.handle)
	if err != nil {
		s.readFailures++
		s.log.Warn("could not read frame from camera", "session", s.id, "failures", s.readFailures, "error", err)
		if s.cfg.MaxReadFailures > 0 && s.readFailures >= s.cfg.MaxReadFailures {
			s.stop(StatusError, MsgCameraLost)
		}
		return
	}
	s.readFailures = 0

	matches, err := s.decoder.Decode(frame)
	if err != nil {
		s.log.Warn("could not decode frame", "session", s.id, "error", err)
		return
	}
	if len(matches) == 0 {
		return
	}

	data, err := scanning.DecodePayload(matches[0].Payload)
	if err != nil {
		s.log.Warn("ignoring unreadable payload", "session", s.id, "error", err)
		return
	}
	_, _, _ = s.record(ctx, data, true)
}

// ManualEntry - records a code typed by the user instead of scanned
func (s *Session) ManualEntry(ctx context.Context, data string) (scanning.Outcome, history.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return scanning.OutcomeFailed, history.ScanRecord{}, ErrClosed
	}
	// blank entries leave the camera state alone
	if _, err := scanning.DecodePayload([]byte(data)); err != nil {
		s.setStatus(StatusInfo, MsgEnterCode)
		return scanning.OutcomeFailed, history.ScanRecord{}, err
	}
	return s.record(ctx, data, false)
}

func (s *Session) record(ctx context.Context, data string, fromCamera bool) (scanning.Outcome, history.ScanRecord, error) {
	outcome, rec, err := s.recorder.RecordScan(ctx, data)
	switch {
	case err != nil:
		s.log.Error("could not record scan", "session", s.id, "error", err)
		s.feedback.Failure()
		if s.state == Scanning {
			s.stop(StatusError, MsgSaveFailed)
		} else {
			s.setStatus(StatusError, MsgSaveFailed)
		}
	case outcome == scanning.OutcomeDuplicate:
		s.setStatus(StatusError, MsgAlreadyScanned)
		// a code held in front of the camera is seen on every tick, beep once per code
		if !fromCamera || s.lastDuplicate != data {
			s.feedback.Failure()
		}
		if fromCamera {
			s.lastDuplicate = data
		}
	default:
		s.log.Info("new code recorded", "session", s.id, "data", rec.Data, "date", rec.Date, "time", rec.Time)
		s.feedback.Success()
		s.result = &rec
		s.reloadHistory(ctx)
		if s.state == Scanning {
			s.stop(StatusSuccess, MsgScanSuccessful)
		} else {
			s.setStatus(StatusSuccess, MsgScanSuccessful)
		}
	}
	return outcome, rec, err
}

// ToggleTorch - flips the flashlight; a no-op when the platform has none
func (s *Session) ToggleTorch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.torch == nil || !s.torch.Available() {
		s.log.Info("flashlight functionality is not available on this platform", "session", s.id)
		return nil
	}
	return s.setTorch(!s.torchOn)
}

func (s *Session) setTorch(on bool) error {
	if err := s.torch.SetTorch(on); err != nil {
		s.log.Error("failed to toggle flashlight", "session", s.id, "error", err)
		return err
	}
	s.torchOn = on
	s.log.Info("flashlight toggled", "session", s.id, "on", on)
	return nil
}

// ToggleRow - flips the selection of history row i
func (s *Session) ToggleRow(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRow(s.rows, i); err != nil {
		return err
	}
	s.rows[i].Selected = !s.rows[i].Selected
	return nil
}

// SelectAll - selects every history row
func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		s.rows[i].Selected = true
	}
	s.setStatus(StatusInfo, MsgAllSelected)
}

// DeleteSelected - removes the selected rows from the log
func (s *Session) DeleteSelected(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := selectedData(s.rows)
	if len(values) == 0 {
		s.setStatus(StatusError, MsgNothingSelected)
		return 0, nil
	}
	return s.delete(ctx, values)
}

// DeleteData - removes the rows holding the given values from the log
func (s *Session) DeleteData(ctx context.Context, values []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(values) == 0 {
		s.setStatus(StatusError, MsgNothingSelected)
		return 0, nil
	}
	return s.delete(ctx, values)
}

func (s *Session) delete(ctx context.Context, values []string) (int, error) {
	n, err := s.recorder.Delete(ctx, values)
	if err != nil {
		s.log.Error("error during deletion", "session", s.id, "error", err)
		s.setStatus(StatusError, MsgDeleteFailed)
		return 0, err
	}
	s.reloadHistory(ctx)
	s.setStatus(StatusSuccess, fmt.Sprintf("%d items deleted!", n))
	s.log.Info("items successfully deleted", "session", s.id, "count", n)
	return n, nil
}

// DismissResult - closes the result confirmation
func (s *Session) DismissResult() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
}

// Snapshot - current state copy
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.id,
		State:          s.state.String(),
		Status:         s.status,
		TorchOn:        s.torchOn,
		TorchAvailable: s.torch != nil && s.torch.Available(),
		Rows:           append([]Row(nil), s.rows...),
	}
	if s.result != nil {
		rec := *s.result
		snap.Result = &rec
	}
	return snap
}

// State - current camera state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run - polls the camera every PollInterval until ctx is done.
// Ticks run on this goroutine only, so they never overlap.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Close - Exit command: stops scanning and releases the camera, safe to call twice
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.log.Info("session is stopping, releasing camera resources", "session", s.id)
	s.stop(StatusInfo, MsgStopped)
	s.closed = true
}

func (s *Session) reloadHistory(ctx context.Context) {
	records, err := s.recorder.Records(ctx)
	if err != nil {
		s.log.Error("could not load history", "session", s.id, "error", err)
		s.setStatus(StatusError, MsgHistoryFailed)
		return
	}
	s.rows = buildRows(records, s.rows)
}

func (s *Session) setStatus(kind StatusKind, text string) {
	s.status = Status{Kind: kind, Text: text}
}
