package trajectory

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestEncodeHeader(t *testing.T) {
	var buf bytes.Buffer
	sites := [][3]float64{{0, 0, 0}, {1, 0, 0}}
	created := time.Date(2013, time.March, 4, 10, 0, 0, 0, time.UTC)

	if err := EncodeHeader(&buf, sites, created); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	expected := `# KMCLib Trajectory
version="2013.1.0"
creation_time="Mon Mar  4 10:00:00 2013"
sites=[[       0.000000,       0.000000,       0.000000],
       [       1.000000,       0.000000,       0.000000]]
times=[]
steps=[]
types=[]
`
	if buf.String() != expected {
		t.Errorf("header mismatch\ngot:\n%s\nwant:\n%s", buf.String(), expected)
	}
}

func TestEncodeHeader_NoSites(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeHeader(&buf, nil, time.Now()); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\nsites=[]\n") {
		t.Errorf("expected empty site list, got:\n%s", buf.String())
	}
}

func TestEncodeRecords(t *testing.T) {
	var buf bytes.Buffer
	records := []Record{
		{Time: 0, Step: 0, Types: []string{"A", "B"}},
		{Time: 1.25, Step: 1, Types: []string{"B", "A"}},
	}

	if err := EncodeRecords(&buf, records); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	expected := `times.append(0.000000)
steps.append(0)
types.append(["A","B"])
times.append(1.250000)
steps.append(1)
types.append(["B","A"])
`
	if buf.String() != expected {
		t.Errorf("records mismatch\ngot:\n%s\nwant:\n%s", buf.String(), expected)
	}
}

func TestEncodeRecords_WrapsTypes(t *testing.T) {
	var buf bytes.Buffer
	types := make([]string, 7)
	for i := range types {
		types[i] = "Vacancy"
	}

	if err := EncodeRecords(&buf, []Record{{Time: 0, Step: 3, Types: types}}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	expected := `times.append(0.000000)
steps.append(3)
types.append(["Vacancy","Vacancy","Vacancy","Vacancy","Vacancy",
              "Vacancy","Vacancy"])
`
	if buf.String() != expected {
		t.Errorf("wrapped types mismatch\ngot:\n%s\nwant:\n%s", buf.String(), expected)
	}
}

func TestEncodeRecords_RowWidth(t *testing.T) {
	labels := []string{"A", "Vacancy", "CO", "O2", "Oxygen", "H", "Hydrogen", "B"}
	types := make([]string, 200)
	for i := range types {
		types[i] = labels[i%len(labels)]
	}

	var buf bytes.Buffer
	if err := EncodeRecords(&buf, []Record{{Types: types}}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")[2:]
	if len(lines) < 2 {
		t.Fatalf("expected wrapped rows, got %d", len(lines))
	}
	for i, line := range lines {
		if len(line) > MaxRowWidth {
			t.Errorf("row %d is %d wide: %q", i, len(line), line)
		}
		if i > 0 && !strings.HasPrefix(line, strings.Repeat(" ", 14)+`"`) {
			t.Errorf("row %d not aligned under bracket: %q", i, line)
		}
		if strings.Count(line, `"`)%2 != 0 {
			t.Errorf("row %d splits a quoted label: %q", i, line)
		}
	}
	if !strings.HasSuffix(lines[len(lines)-1], `"B"])`) {
		t.Errorf("last element must close the list without separator: %q", lines[len(lines)-1])
	}
}

func TestValidLabel(t *testing.T) {
	tests := []struct {
		label string
		valid bool
	}{
		{"A", true},
		{"", true},
		{"Va-1 x", true},
		{`say "hi"`, false},
		{"two\nlines", false},
	}
	for _, tt := range tests {
		if got := validLabel(tt.label); got != tt.valid {
			t.Errorf("validLabel(%q) = %v, want %v", tt.label, got, tt.valid)
		}
	}
}
