package classify

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

var t0 = time.Date(2008, 10, 14, 0, 0, 0, 0, time.UTC)

// syntheticRun builds four tracks chosen to hit all predicate
// combinations of the long/strong rules below:
//
//	id 0: short, weak
//	id 1: long, weak
//	id 2: short, strong
//	id 3: long, strong
func syntheticRun(t *testing.T) *trackrun.Run {
	t.Helper()
	r := trackrun.New(1)
	cases := []struct {
		hours int
		vort  float64
	}{
		{2, 1e-4},
		{12, 1e-4},
		{2, 9e-4},
		{12, 9e-4},
	}
	for _, c := range cases {
		obs := make([]track.Observation, c.hours+1)
		for i := range obs {
			obs[i] = track.Observation{
				Lon:  9.3 + 0.2*float64(i),
				Lat:  79.2,
				Vort: c.vort,
				Time: t0.Add(time.Duration(i) * time.Hour),
				Area: 120,
			}
		}
		if _, err := r.AppendObservations(obs); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return r
}

func isLong(tr *track.Track) (bool, error)   { return tr.LifetimeH() >= 6, nil }
func isStrong(tr *track.Track) (bool, error) { return tr.MaxVort() >= 5e-4, nil }

func TestApply_ANDSemantics(t *testing.T) {
	r := syntheticRun(t)

	rules := []Rule{{Label: "pmc", Predicates: []Predicate{isLong, isStrong}}}
	if err := Apply(r, rules, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := r.Category("pmc")
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	// Only the track satisfying both predicates belongs.
	want := []bool{false, false, false, true}
	if !slices.Equal(got, want) {
		t.Errorf("pmc = %v, want %v", got, want)
	}
}

func TestApply_CategoriesIndependent(t *testing.T) {
	long := Rule{Label: "long", Predicates: []Predicate{isLong}}
	strong := Rule{Label: "strong", Predicates: []Predicate{isStrong}}

	// Classifying both rules together must equal classifying each alone.
	together := syntheticRun(t)
	if err := Apply(together, []Rule{long, strong}, nil); err != nil {
		t.Fatal(err)
	}
	alone := syntheticRun(t)
	if err := Apply(alone, []Rule{long}, nil); err != nil {
		t.Fatal(err)
	}
	wantLong, _ := alone.Category("long")

	gotLong, _ := together.Category("long")
	if !slices.Equal(gotLong, wantLong) {
		t.Errorf("long with companion rule = %v, alone = %v", gotLong, wantLong)
	}
	gotStrong, _ := together.Category("strong")
	if want := []bool{false, false, true, true}; !slices.Equal(gotStrong, want) {
		t.Errorf("strong = %v, want %v", gotStrong, want)
	}
}

func TestApply_Idempotent(t *testing.T) {
	r := syntheticRun(t)
	rules := []Rule{
		{Label: "long", Predicates: []Predicate{isLong}},
		{Label: "strong", Predicates: []Predicate{isStrong}},
	}

	if err := Apply(r, rules, nil); err != nil {
		t.Fatal(err)
	}
	first := map[string][]bool{}
	for _, label := range r.CatLabels() {
		first[label], _ = r.Category(label)
	}

	if err := Apply(r, rules, nil); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.CatLabels(), []string{"long", "strong"}) {
		t.Fatalf("labels after reclassify = %v", r.CatLabels())
	}
	for label, want := range first {
		got, _ := r.Category(label)
		if !slices.Equal(got, want) {
			t.Errorf("category %q changed on reclassify: %v -> %v", label, want, got)
		}
	}
}

func TestApply_InclusiveChain(t *testing.T) {
	r := syntheticRun(t)
	rules := []Rule{
		{Label: "long", Predicates: []Predicate{isLong}},
		{Label: "strong", Predicates: []Predicate{isStrong}},
	}

	if err := Apply(r, rules, &Options{Inclusive: true}); err != nil {
		t.Fatal(err)
	}
	if want := []string{"long", "strong|long"}; !slices.Equal(r.CatLabels(), want) {
		t.Fatalf("labels = %v, want %v", r.CatLabels(), want)
	}
	if !r.Inclusive() {
		t.Error("run not marked inclusive")
	}

	// The chained category only contains tracks that are also long:
	// track 2 is strong but short, so it is excluded.
	got, _ := r.Category("strong" + trackrun.ChainSep + "long")
	if want := []bool{false, false, false, true}; !slices.Equal(got, want) {
		t.Errorf("strong|long = %v, want %v", got, want)
	}
}

func TestApply_PredicateErrorIsTyped(t *testing.T) {
	r := syntheticRun(t)
	cause := errors.New("missing column")
	failing := func(tr *track.Track) (bool, error) {
		if tr.ID() == 2 {
			return false, cause
		}
		return true, nil
	}

	err := Apply(r, []Rule{{Label: "broken", Predicates: []Predicate{failing}}}, nil)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T (%v), want *Error", err, err)
	}
	if cerr.Category != "broken" || cerr.TrackID != 2 {
		t.Errorf("error context = (%q, %d), want (broken, 2)", cerr.Category, cerr.TrackID)
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause not wrapped")
	}
	// No partial membership column is left behind.
	if r.IsCategorised() {
		t.Errorf("failed classification left columns: %v", r.CatLabels())
	}
}

func TestApply_ReservedLabel(t *testing.T) {
	r := syntheticRun(t)
	err := Apply(r, []Rule{{Label: "all", Predicates: []Predicate{isLong}}}, nil)
	if !errors.Is(err, ErrReservedLabel) {
		t.Errorf("error = %v, want ErrReservedLabel", err)
	}
}

func TestApply_KeepAndProgress(t *testing.T) {
	r := syntheticRun(t)
	if err := Apply(r, []Rule{{Label: "long", Predicates: []Predicate{isLong}}}, nil); err != nil {
		t.Fatal(err)
	}

	var calls []int
	opts := &Options{Keep: true, Progress: func(done, total int) {
		if total != 4 {
			t.Errorf("progress total = %d, want 4", total)
		}
		calls = append(calls, done)
	}}
	if err := Apply(r, []Rule{{Label: "strong", Predicates: []Predicate{isStrong}}}, opts); err != nil {
		t.Fatal(err)
	}

	if want := []string{"long", "strong"}; !slices.Equal(r.CatLabels(), want) {
		t.Errorf("Keep lost columns: %v, want %v", r.CatLabels(), want)
	}
	if want := []int{1, 2, 3, 4}; !slices.Equal(calls, want) {
		t.Errorf("progress calls = %v, want %v", calls, want)
	}
}

func TestByPercentile(t *testing.T) {
	r := syntheticRun(t)

	label, err := ByPercentile(r, "max_vort", func(tr *track.Track) float64 { return tr.MaxVort() }, 50, OpGT)
	if err != nil {
		t.Fatalf("ByPercentile: %v", err)
	}
	if label != "max_vort__gt__50pc" {
		t.Errorf("label = %q", label)
	}
	got, err := r.Category(label)
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	// Vorticities are {1e-4, 1e-4, 9e-4, 9e-4}; any median threshold in
	// [1e-4, 9e-4) keeps exactly the two strong tracks under OpGT.
	want := []bool{false, false, true, true}
	if !slices.Equal(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
}

func TestByPercentile_Subset(t *testing.T) {
	r := syntheticRun(t)
	if err := Apply(r, []Rule{{Label: "long", Predicates: []Predicate{isLong}}}, nil); err != nil {
		t.Fatal(err)
	}

	label, err := ByPercentile(r, "max_vort", func(tr *track.Track) float64 { return tr.MaxVort() }, 95, OpGE, "long")
	if err != nil {
		t.Fatalf("ByPercentile: %v", err)
	}
	if label != "max_vort__ge__95pc|long" {
		t.Errorf("label = %q", label)
	}
	got, _ := r.Category(label)
	// Only long tracks (ids 1, 3) are in scope; the strongest is id 3.
	want := []bool{false, false, false, true}
	if !slices.Equal(got, want) {
		t.Errorf("flags = %v, want %v", got, want)
	}
}

func TestByPercentile_BadOperator(t *testing.T) {
	r := syntheticRun(t)
	_, err := ByPercentile(r, "x", func(tr *track.Track) float64 { return 0 }, 50, Op("between"))
	if !errors.Is(err, ErrBadOperator) {
		t.Errorf("error = %v, want ErrBadOperator", err)
	}
}
