package viz

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/latsim/internal/experiment"
	"github.com/san-kum/latsim/internal/storage"
)

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestLiveModelProgress(t *testing.T) {
	var m tea.Model = NewLiveModel("langmuir", nil)

	for step := 0; step <= 50; step += 10 {
		var cmd tea.Cmd
		m, cmd = m.Update(ProgressMsg(experiment.Progress{
			RunID:    "langmuir_1",
			Step:     step,
			Steps:    100,
			Time:     float64(step) / 10,
			Coverage: float64(step) / 100,
			Pending:  step / 10,
			Written:  3,
		}))
		if cmd != nil {
			t.Fatalf("step %d: unexpected command", step)
		}
	}

	live := m.(LiveModel)
	if live.Fraction() != 0.5 {
		t.Errorf("expected fraction 0.5, got %v", live.Fraction())
	}

	view := live.View()
	for _, want := range []string{"langmuir_1", "running", "50/100", "5 records", "3 records", "coverage"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestLiveModelDone(t *testing.T) {
	m, cmd := NewLiveModel("langmuir", nil).Update(DoneMsg{Meta: sampleRun()})
	if !isQuit(cmd) {
		t.Error("done should quit the program")
	}
	if !strings.Contains(m.View(), "done") {
		t.Errorf("view missing done status:\n%s", m.View())
	}
}

func TestLiveModelFailed(t *testing.T) {
	boom := errors.New("trajectory: file i/o failed")
	m, _ := NewLiveModel("langmuir", nil).Update(DoneMsg{Err: boom})

	live := m.(LiveModel)
	if !errors.Is(live.Err(), boom) {
		t.Errorf("expected run error, got %v", live.Err())
	}
	view := live.View()
	if !strings.Contains(view, "failed") || !strings.Contains(view, boom.Error()) {
		t.Errorf("view missing failure:\n%s", view)
	}
}

func TestLiveModelQuitCancelsRun(t *testing.T) {
	cancelled := 0
	m := NewLiveModel("langmuir", func() { cancelled++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !isQuit(cmd) {
		t.Error("q should quit")
	}
	if cancelled != 1 {
		t.Errorf("expected run cancelled once, got %d", cancelled)
	}

	done, _ := m.Update(DoneMsg{Meta: sampleRun()})
	done.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cancelled != 1 {
		t.Error("quitting a finished run should not cancel it")
	}
}

func TestLiveModelHistoryBounded(t *testing.T) {
	var m tea.Model = NewLiveModel("x", nil)
	for step := 0; step < 2*liveHistory; step++ {
		m, _ = m.Update(ProgressMsg(experiment.Progress{Step: step, Steps: 2 * liveHistory, Coverage: 0.5}))
	}
	if got := len(m.(LiveModel).coverage); got != liveHistory {
		t.Errorf("expected %d samples kept, got %d", liveHistory, got)
	}
}

func TestStatus(t *testing.T) {
	meta := sampleRun()
	if Status(meta) != "done" {
		t.Errorf("expected done, got %s", Status(meta))
	}
	meta.Archived = true
	if Status(meta) != "archived" {
		t.Errorf("expected archived, got %s", Status(meta))
	}
	meta.Error = "boom"
	if Status(meta) != "failed" {
		t.Errorf("expected failed, got %s", Status(meta))
	}
}

func TestSummaryFailed(t *testing.T) {
	meta := &storage.RunMetadata{ID: "x_1", Error: "rank 0: context canceled"}
	out := Summary(meta)
	if !strings.Contains(out, "failed") || !strings.Contains(out, "context canceled") {
		t.Errorf("summary missing failure:\n%s", out)
	}
}
