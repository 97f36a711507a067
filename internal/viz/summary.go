package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/latsim/internal/storage"
)

// Status is the one-word state of a run as shown by list.
func Status(meta *storage.RunMetadata) string {
	switch {
	case meta.Failed():
		return "failed"
	case meta.Archived:
		return "archived"
	}
	return "done"
}

// Summary renders a boxed overview of a stored run.
func Summary(meta *storage.RunMetadata) string {
	var b strings.Builder

	var status string
	switch {
	case meta.Failed():
		status = StatusFailed.Render("failed")
	case meta.Archived:
		status = StatusArchived.Render("archived")
	default:
		status = StatusDone.Render("done")
	}
	b.WriteString(Title.Render(meta.ID) + "  " + status + "\n")
	b.WriteString(Subtle.Render(meta.Timestamp.Format("2006-01-02 15:04:05")) + "\n\n")

	rows := [][2]string{
		{"preset", meta.Preset},
		{"seed", fmt.Sprintf("%d", meta.Seed)},
		{"ranks", fmt.Sprintf("%d", meta.Ranks)},
		{"sites", fmt.Sprintf("%d", meta.Sites)},
		{"steps", fmt.Sprintf("%d", meta.StepsTaken)},
		{"recorded", fmt.Sprintf("%d", meta.Recorded)},
		{"final time", fmt.Sprintf("%.6g", meta.FinalTime)},
		{"buffer", fmt.Sprintf("%d bytes / %s", meta.MaxBufferSize, meta.MaxBufferTime)},
	}
	if meta.Exhausted {
		rows = append(rows, [2]string{"stopped", "no enabled process"})
	}
	if meta.Failed() {
		rows = append(rows, [2]string{"error", meta.Error})
	}

	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, [2]string{name, fmt.Sprintf("%.4f", meta.Metrics[name])})
	}

	for _, r := range rows {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-12s", r[0])))
		b.WriteString(MetricValue.Render(r[1]))
		b.WriteString("\n")
	}

	if len(meta.Coverage) > 0 {
		b.WriteString("\n")
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-12s", "coverage")))
		b.WriteString(Sparkline(meta.Coverage, 40))
	}

	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// CoveragePlot draws the coverage series of a run. It returns an empty
// string when the run has no samples.
func CoveragePlot(meta *storage.RunMetadata, width, height int) string {
	if len(meta.Coverage) == 0 {
		return ""
	}
	data := meta.Coverage
	if len(data) == 1 {
		data = []float64{data[0], data[0]}
	}

	caption := "coverage per recorded step"
	if n := len(meta.CoverageTimes); n > 0 {
		caption = fmt.Sprintf("coverage, t = %.4g .. %.4g", meta.CoverageTimes[0], meta.CoverageTimes[n-1])
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Caption(caption),
	)
}
