package processing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/scanning"
)

type storageMock struct {
	mtx     sync.RWMutex
	data    []history.ScanRecord
	nextErr error
}

func (sm *storageMock) Initialize(context.Context) error { return nil }

func (sm *storageMock) LoadAll(context.Context) ([]history.ScanRecord, error) {
	sm.mtx.RLock()
	defer sm.mtx.RUnlock()
	return append([]history.ScanRecord(nil), sm.data...), nil
}

func (sm *storageMock) Append(_ context.Context, rec history.ScanRecord) error {
	if sm.nextErr != nil {
		return sm.nextErr
	}
	sm.mtx.Lock()
	defer sm.mtx.Unlock()
	sm.data = append(sm.data, rec)
	return nil
}

type ReceiverSuite struct {
	suite.Suite
}

func TestReceiverSuite(t *testing.T) {
	suite.Run(t, &ReceiverSuite{})
}

func event(data string) scanning.ScanEvent {
	return scanning.ScanEvent{
		ID:     "evt-" + data,
		Record: history.ScanRecord{Data: data, Date: "2024-05-01", Time: "09:30:00", Status: history.StatusSuccess},
	}
}

func (s *ReceiverSuite) TestNew() {
	r, err := New(nil, nil)
	s.Error(err)
	s.Nil(r)
}

func (s *ReceiverSuite) TestProcess() {
	testCases := []struct {
		title                string
		expectedAffectedRows int64
		expectedErr          error
		dbErr                error
		input                scanning.ScanEvent
		dbData               []history.ScanRecord
		expectedRows         int
	}{
		{
			title:                "Success - new row added",
			expectedAffectedRows: 1,
			input:                event("ABC123"),
			expectedRows:         1,
		},
		{
			title:                "Failure - db error",
			expectedAffectedRows: 0,
			input:                event("ABC123"),
			dbErr:                fmt.Errorf("database internal error"),
			expectedErr:          fmt.Errorf("database internal error"),
			expectedRows:         0,
		},
		{
			title:                "Success - stored record skipped",
			dbData:               []history.ScanRecord{event("ABC123").Record},
			expectedAffectedRows: 0,
			input:                event("ABC123"),
			expectedRows:         1,
		},
		{
			title:                "Success - other payload appended",
			dbData:               []history.ScanRecord{event("ABC123").Record},
			expectedAffectedRows: 1,
			input:                event("XYZ"),
			expectedRows:         2,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.title, func() {
			mock := &storageMock{
				data:    tc.dbData,
				nextErr: tc.dbErr,
			}

			receiver, err := New(mock, nil)
			s.NoError(err)
			s.NoError(receiver.Load(context.TODO()))

			n, err := receiver.Process(context.TODO(), tc.input)
			s.Equal(tc.expectedErr, err)
			s.Equal(tc.expectedAffectedRows, n)
			s.Len(mock.data, tc.expectedRows)
		})
	}
}

func (s *ReceiverSuite) TestProcessTwice() {
	mock := &storageMock{}
	receiver, err := New(mock, nil)
	s.Require().NoError(err)

	n, err := receiver.Process(context.TODO(), event("A"))
	s.NoError(err)
	s.EqualValues(1, n)
	n, err = receiver.Process(context.TODO(), event("A"))
	s.NoError(err)
	s.EqualValues(0, n)
	s.Len(mock.data, 1)
}

func (s *ReceiverSuite) TestRescanAfterDeleteIsMirrored() {
	mock := &storageMock{}
	receiver, err := New(mock, nil)
	s.Require().NoError(err)

	first := event("A")
	n, err := receiver.Process(context.TODO(), first)
	s.NoError(err)
	s.EqualValues(1, n)

	rescan := scanning.ScanEvent{
		ID:     "evt-A-again",
		Record: history.ScanRecord{Data: "A", Date: "2024-05-02", Time: "10:00:00", Status: history.StatusSuccess},
	}
	n, err = receiver.Process(context.TODO(), rescan)
	s.NoError(err)
	s.EqualValues(1, n, "same payload with a new event id is a new scan")

	n, err = receiver.Process(context.TODO(), rescan)
	s.NoError(err)
	s.EqualValues(0, n, "redelivery of the same event id")
	s.Len(mock.data, 2)
}

func (s *ReceiverSuite) TestRedeliveryAfterRestart() {
	mock := &storageMock{data: []history.ScanRecord{event("A").Record}}
	receiver, err := New(mock, nil)
	s.Require().NoError(err)
	s.Require().NoError(receiver.Load(context.TODO()))

	n, err := receiver.Process(context.TODO(), event("A"))
	s.NoError(err)
	s.EqualValues(0, n)
	s.Len(mock.data, 1)
}

func (s *ReceiverSuite) TestParseEvent() {
	testCases := []struct {
		title        string
		input        string
		expectedData string
		expectedErr  bool
	}{
		{
			title:        "GOOD event",
			input:        `{"id":"e1","record":{"data":" ABC123 ","date":"2024-05-01","time":"09:30:00","status":"success"}}`,
			expectedData: "ABC123",
		},
		{
			title:        "GOOD event without status",
			input:        `{"id":"e1","record":{"data":"X","date":"2024-05-01","time":"09:30:00"}}`,
			expectedData: "X",
		},
		{
			title:       "CORRUPT json",
			input:       `{"id":`,
			expectedErr: true,
		},
		{
			title:       "EMPTY payload",
			input:       `{"id":"e1","record":{"data":"   ","date":"2024-05-01","time":"09:30:00"}}`,
			expectedErr: true,
		},
		{
			title:       "BAD timestamp",
			input:       `{"id":"e1","record":{"data":"X","date":"01/05/2024","time":"09:30"}}`,
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.title, func() {
			ev, err := ParseEvent([]byte(tc.input))
			if tc.expectedErr {
				s.ErrorIs(err, ErrBadEvent)
				return
			}
			s.NoError(err)
			s.Equal(tc.expectedData, ev.Record.Data)
			s.Equal(history.StatusSuccess, ev.Record.Status)
		})
	}
}
