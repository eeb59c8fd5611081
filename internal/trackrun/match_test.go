package trackrun

import (
	"testing"
	"time"
)

func TestMatch(t *testing.T) {
	a := New(1)
	if _, err := a.AppendObservations(walkObs(t0, 6, 9.3, 79.2, 0.1, 2e-4)); err != nil {
		t.Fatal(err)
	}

	// Same times, slightly offset path: should match within 250 km.
	b := New(1)
	if _, err := b.AppendObservations(walkObs(t0, 6, 9.5, 79.3, 0.1, 3e-4)); err != nil {
		t.Fatal(err)
	}
	// A distant track at the same times: must not steal the match.
	if _, err := b.AppendObservations(walkObs(t0.Add(12*time.Hour), 6, 120.0, 30.0, 0.1, 3e-4)); err != nil {
		t.Fatal(err)
	}

	pairs := a.Match(b, 250.0, 0.5)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %v, want exactly one", pairs)
	}
	if pairs[0].ID != 0 || pairs[0].OtherID != 0 {
		t.Errorf("pair = %+v, want {0 0}", pairs[0])
	}
}

func TestMatch_SingleCommonTime(t *testing.T) {
	a := New(1)
	if _, err := a.AppendObservations(walkObs(t0, 4, 9.3, 79.2, 0.1, 2e-4)); err != nil {
		t.Fatal(err)
	}
	// Starts where a ends, same place: exactly one shared timestamp.
	// One point has no time step, so the overlap is zero hours.
	b := New(1)
	if _, err := b.AppendObservations(walkObs(t0.Add(3*time.Hour), 4, 9.6, 79.2, 0.1, 2e-4)); err != nil {
		t.Fatal(err)
	}

	if pairs := a.Match(b, 250.0, 0.5); len(pairs) != 0 {
		t.Errorf("single common time matched: %v", pairs)
	}
}

func TestMatch_NoCommonTimes(t *testing.T) {
	a := New(1)
	if _, err := a.AppendObservations(walkObs(t0, 4, 9.3, 79.2, 0.1, 2e-4)); err != nil {
		t.Fatal(err)
	}
	b := New(1)
	if _, err := b.AppendObservations(walkObs(t0.Add(48*time.Hour), 4, 9.3, 79.2, 0.1, 2e-4)); err != nil {
		t.Fatal(err)
	}

	if pairs := a.Match(b, 250.0, 0.5); len(pairs) != 0 {
		t.Errorf("disjoint times matched: %v", pairs)
	}
}
