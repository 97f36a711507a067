// Package viz renders finished runs in the terminal.
//
// Summaries are drawn with lipgloss panels and the coverage series of a run
// is plotted with asciigraph:
//
//   - [Summary]: boxed run overview with metrics and buffer limits
//   - [CoveragePlot]: coverage against recorded sample
//   - [Sparkline]: one-line coverage trend for run listings
package viz
