package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		// the live view leaves carriage returns behind
		line = line[strings.LastIndex(line, "\r")+1:]
		if id, ok := strings.CutPrefix(line, "run: "); ok {
			return id
		}
	}
	t.Fatalf("no run id in output:\n%s", out)
	return ""
}

func TestRunListShowArchive(t *testing.T) {
	data := t.TempDir()

	out, err := execute(t, "--data", data, "run", "--preset", "langmuir",
		"--steps", "100", "--dump-interval", "10", "--ranks", "2", "--buffer-size", "128", "--log-level", "warn")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	id := runID(t, out)
	if !strings.HasPrefix(id, "langmuir_") {
		t.Errorf("unexpected run id %q", id)
	}

	out, err = execute(t, "--data", data, "list")
	if err != nil || !strings.Contains(out, id) {
		t.Errorf("list missing run: %v\n%s", err, out)
	}

	out, err = execute(t, "--data", data, "list", "--filter", "ranks == 1")
	if err != nil || strings.Contains(out, id) {
		t.Errorf("filter should exclude run: %v\n%s", err, out)
	}

	out, err = execute(t, "--data", data, "list", "--reindex", "--filter", `preset == "langmuir" && ranks == 2`)
	if err != nil || !strings.Contains(out, id) {
		t.Errorf("filter should keep run: %v\n%s", err, out)
	}

	out, err = execute(t, "--data", data, "show", id)
	if err != nil || !strings.Contains(out, "coverage") {
		t.Errorf("show failed: %v\n%s", err, out)
	}

	out, err = execute(t, "--data", data, "show", "--json", id)
	if err != nil || !strings.Contains(out, `"recorded": 11`) {
		t.Errorf("show --json failed: %v\n%s", err, out)
	}

	if _, err := execute(t, "--data", data, "archive", id); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	out, err = execute(t, "--data", data, "list", "--filter", "archived")
	if err != nil || !strings.Contains(out, "archived") {
		t.Errorf("list should show archived status: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(data, id, "trajectory.py.zst")); err != nil {
		t.Errorf("archive missing: %v", err)
	}

	out, err = execute(t, "--data", data, "cat", id)
	if err != nil || !strings.HasPrefix(out, "# KMCLib Trajectory\n") {
		t.Errorf("cat failed: %v\n%.80s", err, out)
	}
	if got := strings.Count(out, "steps.append("); got != 11 {
		t.Errorf("expected 11 recorded steps, got %d", got)
	}
}

func TestRunWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	cfg := "simulation:\n  steps: 30\n  dump_interval: 10\nlattice:\n  repetitions: [3, 3, 1]\nlog:\n  level: error\n"
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--data", dir, "run", "--config", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, "recorded: 4") {
		t.Errorf("expected 4 recorded steps:\n%s", out)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	data := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown preset", []string{"run", "--preset", "nope"}},
		{"config and preset", []string{"run", "--preset", "langmuir", "--config", "x.yaml"}},
		{"zero steps", []string{"run", "--steps", "0"}},
		{"bad log format", []string{"run", "--steps", "10", "--log-format", "xml"}},
		{"missing run", []string{"show", "nope"}},
		{"bad filter", []string{"list", "--filter", "ranks >"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, append([]string{"--data", data}, tt.args...)...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestListEmpty(t *testing.T) {
	out, err := execute(t, "--data", t.TempDir(), "list")
	if err != nil || !strings.Contains(out, "no runs found") {
		t.Errorf("unexpected output: %v %q", err, out)
	}
}

func TestPresets(t *testing.T) {
	out, err := execute(t, "presets")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"diffusion", "langmuir", "parallel", "saturating"} {
		if !strings.Contains(out, name) {
			t.Errorf("presets missing %s:\n%s", name, out)
		}
	}
}

func TestRunManyRanksTinyBufferTime(t *testing.T) {
	data := t.TempDir()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := execute(t, "--data", data, "run", "--preset", "parallel",
			"--steps", "2000", "--dump-interval", "1", "--ranks", "4", "--buffer-time", "200us", "--log-level", "error")
		done <- result{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("run failed: %v", res.err)
		}
		id := runID(t, res.out)
		out, err := execute(t, "--data", data, "cat", id)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Count(out, "steps.append("); got != 2001 {
			t.Errorf("expected 2001 recorded steps, got %d", got)
		}
	case <-time.After(60 * time.Second):
		t.Fatal("four-rank run with a tiny buffer time did not finish")
	}
}

func TestRunLive(t *testing.T) {
	data := t.TempDir()

	out, err := execute(t, "--data", data, "run", "--preset", "langmuir", "--live",
		"--steps", "50", "--dump-interval", "10", "--ranks", "2", "--log-level", "error")
	if err != nil {
		t.Fatalf("live run failed: %v", err)
	}
	id := runID(t, out)
	if !strings.Contains(out, "written") {
		t.Errorf("live view not rendered:\n%s", out)
	}

	out, err = execute(t, "--data", data, "show", "--json", id)
	if err != nil || !strings.Contains(out, `"recorded": 6`) {
		t.Errorf("live run not stored: %v\n%s", err, out)
	}
}
