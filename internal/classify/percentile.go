package classify

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

// Op selects the comparison side of a percentile threshold.
type Op string

const (
	OpLT Op = "lt"
	OpLE Op = "le"
	OpGT Op = "gt"
	OpGE Op = "ge"
)

// ErrBadOperator rejects operators outside lt|le|gt|ge.
var ErrBadOperator = errors.New("classify: operator must be one of lt|le|gt|ge")

func (op Op) compare(v, thresh float64) (bool, error) {
	switch op {
	case OpLT:
		return v < thresh, nil
	case OpLE:
		return v <= thresh, nil
	case OpGT:
		return v > thresh, nil
	case OpGE:
		return v >= thresh, nil
	}
	return false, fmt.Errorf("%w: %q", ErrBadOperator, op)
}

// ByPercentile categorises tracks by comparing a per-track scalar against
// the perc-th percentile of that scalar over the run (or over one
// existing category when subset is given). The new column is labelled
// "<byLabel>__<op>__<perc>pc", suffixed with "|<subset>" when scoped.
// E.g. perc=95 with OpGE selects the top 5% of tracks. An empty
// (sub)population leaves the run unchanged.
func ByPercentile(run *trackrun.Run, byLabel string, by func(*track.Track) float64, perc float64, op Op, subset ...string) (string, error) {
	if _, err := op.compare(0, 0); err != nil {
		return "", err
	}

	label := fmt.Sprintf("%s__%s__%gpc", byLabel, op, perc)
	member := func(pos int) bool { return true }
	if len(subset) > 0 && subset[0] != "" {
		flags, err := run.Category(subset[0])
		if err != nil {
			return "", err
		}
		member = func(pos int) bool { return flags[pos] }
		label += trackrun.ChainSep + subset[0]
	}

	var values []float64
	perTrack := make([]float64, 0, run.Size())
	pos := 0
	for _, tr := range run.Tracks() {
		v := by(tr)
		perTrack = append(perTrack, v)
		if member(pos) {
			values = append(values, v)
		}
		pos++
	}
	if len(values) == 0 {
		return label, nil
	}

	sort.Float64s(values)
	thresh := stat.Quantile(perc/100, stat.LinInterp, values, nil)

	flags := make([]bool, len(perTrack))
	for i, v := range perTrack {
		if !member(i) {
			continue
		}
		ok, err := op.compare(v, thresh)
		if err != nil {
			return "", err
		}
		flags[i] = ok
	}
	if err := run.SetCategory(label, flags); err != nil {
		return "", err
	}
	return label, nil
}
