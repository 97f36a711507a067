package trajectory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// parsedTrajectory is what a scripting-style reader recovers from the file.
type parsedTrajectory struct {
	Version      string
	CreationTime string
	Sites        [][3]float64
	Times        []float64
	Steps        []int
	Types        [][]string
}

// parseTrajectoryFile executes the file's statements the way a generic
// reader would, joining continuation lines until brackets balance.
func parseTrajectoryFile(path string) (*parsedTrajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := &parsedTrajectory{}
	var stmt strings.Builder
	depth := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if depth == 0 && strings.HasPrefix(line, "#") {
			continue
		}
		stmt.WriteString(strings.TrimSpace(line))
		depth += bracketDepth(line)
		if depth > 0 {
			continue
		}
		if err := p.exec(stmt.String()); err != nil {
			return nil, err
		}
		stmt.Reset()
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if depth != 0 {
		return nil, fmt.Errorf("unterminated statement: %q", stmt.String())
	}
	return p, nil
}

func bracketDepth(line string) int {
	d := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[' || r == '(':
			d++
		case r == ']' || r == ')':
			d--
		}
	}
	return d
}

func (p *parsedTrajectory) exec(stmt string) error {
	switch {
	case stmt == "":
		return nil
	case strings.HasPrefix(stmt, "version="):
		return unquoteInto(&p.Version, strings.TrimPrefix(stmt, "version="))
	case strings.HasPrefix(stmt, "creation_time="):
		return unquoteInto(&p.CreationTime, strings.TrimPrefix(stmt, "creation_time="))
	case strings.HasPrefix(stmt, "sites="):
		return json.Unmarshal([]byte(strings.TrimPrefix(stmt, "sites=")), &p.Sites)
	case stmt == "times=[]":
		p.Times = []float64{}
	case stmt == "steps=[]":
		p.Steps = []int{}
	case stmt == "types=[]":
		p.Types = [][]string{}
	case strings.HasPrefix(stmt, "times.append("):
		v, err := strconv.ParseFloat(appendArg(stmt, "times"), 64)
		if err != nil {
			return err
		}
		p.Times = append(p.Times, v)
	case strings.HasPrefix(stmt, "steps.append("):
		v, err := strconv.Atoi(appendArg(stmt, "steps"))
		if err != nil {
			return err
		}
		p.Steps = append(p.Steps, v)
	case strings.HasPrefix(stmt, "types.append("):
		var types []string
		if err := json.Unmarshal([]byte(appendArg(stmt, "types")), &types); err != nil {
			return err
		}
		p.Types = append(p.Types, types)
	default:
		return fmt.Errorf("unknown statement: %q", stmt)
	}
	return nil
}

func appendArg(stmt, name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(stmt, name+".append("), ")")
}

func unquoteInto(dst *string, s string) error {
	v, err := strconv.Unquote(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

type staticConfig []string

func (c staticConfig) Types() []string { return c }

// fakeClock is advanced by hand.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2013, time.March, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
