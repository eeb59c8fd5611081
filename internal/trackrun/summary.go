package trackrun

import (
	"fmt"
	"strings"
)

// ChainSep joins the components of an inclusive category label, e.g.
// "strong|pmc" for the "strong" subset of "pmc".
const ChainSep = "|"

func splitChain(label string) []string {
	return strings.Split(label, ChainSep)
}

// Summary is the stable, human-readable description of a run. Its content
// (track count, columns, sources) is a contract used for sanity checks by
// other components; its formatting is presentation only.
type Summary struct {
	NTracks    int
	Columns    []string
	Sources    []string
	TstepH     float64
	Categories []string
	Inclusive  bool
}

// Summary returns the run's summary view.
func (r *Run) Summary() Summary {
	return Summary{
		NTracks:    r.Size(),
		Columns:    r.Columns(),
		Sources:    r.Sources(),
		TstepH:     r.TstepH(),
		Categories: r.CatLabels(),
		Inclusive:  r.Inclusive(),
	}
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TrackRun: %d tracks", s.NTracks)
	if s.TstepH != 0 {
		fmt.Fprintf(&b, " @ %g h", s.TstepH)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "columns: %s\n", strings.Join(s.Columns, ", "))
	if len(s.Sources) > 0 {
		fmt.Fprintf(&b, "sources: %s\n", strings.Join(s.Sources, ", "))
	}
	if len(s.Categories) > 0 {
		mode := "independent"
		if s.Inclusive {
			mode = "inclusive"
		}
		fmt.Fprintf(&b, "categories (%s): %s\n", mode, strings.Join(s.Categories, ", "))
	}
	return b.String()
}

func (r *Run) String() string {
	return r.Summary().String()
}
