package runner

import (
	"regexp"
	"strconv"
)

// fpsCounterLine matches the summaries printed by gvafpscounter, e.g.
//
//	FpsCounter(overall 10.01sec): total=299.70 fps, number-streams=10, per-stream=29.97 fps (29.95, 29.99, ...)
var fpsCounterLine = regexp.MustCompile(
	`FpsCounter\((average|overall|last) [\d.]+sec\): total=([\d.]+) fps, number-streams=(\d+), per-stream=([\d.]+) fps`,
)

// fpsTracker keeps the most authoritative summary seen so far: overall beats
// average, and last-window figures are only used when nothing else was printed.
type fpsTracker struct {
	overall *Result
	average *Result
	last    *Result
}

func (t *fpsTracker) observe(line string) {
	m := fpsCounterLine.FindStringSubmatch(line)
	if m == nil {
		return
	}
	total, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return
	}
	streams, err := strconv.Atoi(m[3])
	if err != nil {
		return
	}
	perStream, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return
	}

	r := &Result{TotalFPS: total, PerStreamFPS: perStream, NumStreams: streams}
	switch m[1] {
	case "overall":
		t.overall = r
	case "average":
		t.average = r
	default:
		t.last = r
	}
}

func (t *fpsTracker) result() *Result {
	switch {
	case t.overall != nil:
		return t.overall
	case t.average != nil:
		return t.average
	default:
		return t.last
	}
}
