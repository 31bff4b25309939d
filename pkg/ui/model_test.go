package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/suite"

	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/scanning"
	"github.com/igorvan/qrscan/pkg/session"
)

type commandsStub struct {
	calls   []string
	toggled []int
	entered []string
	snap    session.Snapshot
}

func (c *commandsStub) Start(context.Context) error { c.calls = append(c.calls, "start"); return nil }
func (c *commandsStub) Stop()                       { c.calls = append(c.calls, "stop") }
func (c *commandsStub) Tick(context.Context)        { c.calls = append(c.calls, "tick") }
func (c *commandsStub) ToggleTorch() error          { c.calls = append(c.calls, "torch"); return nil }
func (c *commandsStub) SelectAll()                  { c.calls = append(c.calls, "select-all") }
func (c *commandsStub) DismissResult()              { c.calls = append(c.calls, "dismiss") }
func (c *commandsStub) Close()                      { c.calls = append(c.calls, "close") }
func (c *commandsStub) Snapshot() session.Snapshot  { return c.snap }

func (c *commandsStub) ToggleRow(i int) error {
	c.toggled = append(c.toggled, i)
	c.snap.Rows[i].Selected = !c.snap.Rows[i].Selected
	return nil
}

func (c *commandsStub) DeleteSelected(context.Context) (int, error) {
	c.calls = append(c.calls, "delete")
	return 0, nil
}

func (c *commandsStub) ManualEntry(_ context.Context, data string) (scanning.Outcome, history.ScanRecord, error) {
	c.entered = append(c.entered, data)
	return scanning.OutcomeNew, history.ScanRecord{Data: data}, nil
}

type ModelSuite struct {
	suite.Suite
	stub  *commandsStub
	model tea.Model
}

func TestModelSuite(t *testing.T) {
	suite.Run(t, &ModelSuite{})
}

func (s *ModelSuite) SetupTest() {
	rows := []session.Row{
		{Record: history.ScanRecord{Data: "C"}, Label: "[2024-05-01 09:32:00] C"},
		{Record: history.ScanRecord{Data: "B"}, Label: "[2024-05-01 09:31:00] B"},
		{Record: history.ScanRecord{Data: "A"}, Label: "[2024-05-01 09:30:00] A"},
	}
	s.stub = &commandsStub{snap: session.Snapshot{
		State:  "idle",
		Status: session.Status{Kind: session.StatusInfo, Text: session.MsgReady},
		Rows:   rows,
	}}
	s.model = NewModel(context.Background(), s.stub, time.Millisecond)
}

func (s *ModelSuite) press(keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		s.model, cmd = s.model.Update(k)
	}
	return cmd
}

func runes(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func (s *ModelSuite) TestCommands() {
	s.press(runes("s"), runes("x"), runes("f"), runes("a"), runes("d"), tea.KeyMsg{Type: tea.KeyEnter})
	s.Equal([]string{"start", "stop", "torch", "select-all", "delete", "dismiss"}, s.stub.calls)
}

func (s *ModelSuite) TestCursorAndSelection() {
	s.press(runes("j"), runes("j"), runes("j"), tea.KeyMsg{Type: tea.KeySpace})
	s.Equal([]int{2}, s.stub.toggled, "cursor stops at the last row")

	s.press(tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeySpace})
	s.Equal([]int{2, 1}, s.stub.toggled)

	view := s.model.View()
	s.Contains(view, "[x] ")
	s.Contains(view, "[2024-05-01 09:30:00] A")
}

func (s *ModelSuite) TestManualEntry() {
	s.press(runes("m"))
	s.press(runes("h"), runes("i"))
	s.Empty(s.stub.calls, "keys typed into the input are not commands")
	s.press(tea.KeyMsg{Type: tea.KeyEnter})
	s.Equal([]string{"hi"}, s.stub.entered)

	s.press(runes("m"), runes("z"), tea.KeyMsg{Type: tea.KeyEsc})
	s.Equal([]string{"hi"}, s.stub.entered)
}

func (s *ModelSuite) TestTickAndQuit() {
	cmd := s.model.Init()
	s.NotNil(cmd)

	_, cmd = s.model.Update(tickMsg(time.Now()))
	s.NotNil(cmd)
	s.Equal([]string{"tick"}, s.stub.calls)

	cmd = s.press(runes("q"))
	s.Require().NotNil(cmd)
	s.Equal(tea.Quit(), cmd())
	s.Equal([]string{"tick", "close"}, s.stub.calls)
}

func (s *ModelSuite) TestView() {
	s.stub.snap.Result = &history.ScanRecord{Data: "ABC123", Date: "2024-05-01", Time: "09:30:00"}
	s.stub.snap.Status = session.Status{Kind: session.StatusSuccess, Text: session.MsgScanSuccessful}
	s.model, _ = s.model.Update(tickMsg(time.Now()))

	view := s.model.View()
	s.Contains(view, "Scan Result")
	s.Contains(view, "Data: ABC123")
	s.Contains(view, session.MsgScanSuccessful)
	s.Contains(view, "flashlight: n/a")
}
