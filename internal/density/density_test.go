package density

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

var t0 = time.Date(2008, 10, 14, 0, 0, 0, 0, time.UTC)

func gridRun(t *testing.T) *trackrun.Run {
	t.Helper()
	r := trackrun.New(1)
	// Track 0: three observations in the same cell around (10, 70).
	obs := []track.Observation{
		{Lon: 10.1, Lat: 70.1, Time: t0},
		{Lon: 10.2, Lat: 70.2, Time: t0.Add(time.Hour)},
		{Lon: 10.3, Lat: 70.1, Time: t0.Add(2 * time.Hour)},
	}
	if _, err := r.AppendObservations(obs); err != nil {
		t.Fatal(err)
	}
	// Track 1: moves from cell (10, 70) to cell (20, 70).
	obs = []track.Observation{
		{Lon: 10.5, Lat: 70.0, Time: t0},
		{Lon: 19.5, Lat: 70.0, Time: t0.Add(time.Hour)},
	}
	if _, err := r.AppendObservations(obs); err != nil {
		t.Fatal(err)
	}
	return r
}

// Centres 10, 20, 30 with 10-degree cells; lat centres 70, 80.
var (
	gridLons = []float64{10, 20, 30}
	gridLats = []float64{70, 80}
)

func TestCompute_Point(t *testing.T) {
	f, err := Compute(gridRun(t), gridLons, gridLats, Options{By: Point})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if f.Units != "1" {
		t.Errorf("units = %q, want 1", f.Units)
	}
	// 4 points in cell (70, 10), 1 in cell (70, 20).
	if got := f.Values[0][0]; got != 4 {
		t.Errorf("cell (70, 10) = %v, want 4", got)
	}
	if got := f.Values[0][1]; got != 1 {
		t.Errorf("cell (70, 20) = %v, want 1", got)
	}
	if got := f.Values[1][0]; got != 0 {
		t.Errorf("cell (80, 10) = %v, want 0", got)
	}
}

func TestCompute_TrackOncePerCell(t *testing.T) {
	f, err := Compute(gridRun(t), gridLons, gridLats, Options{By: Track})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// Both tracks touch cell (70, 10); only track 1 touches (70, 20).
	if got := f.Values[0][0]; got != 2 {
		t.Errorf("cell (70, 10) = %v, want 2", got)
	}
	if got := f.Values[0][1]; got != 1 {
		t.Errorf("cell (70, 20) = %v, want 1", got)
	}
}

func TestCompute_GenesisLysis(t *testing.T) {
	f, err := Compute(gridRun(t), gridLons, gridLats, Options{By: Genesis})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Values[0][0]; got != 2 {
		t.Errorf("genesis cell (70, 10) = %v, want 2", got)
	}

	// Excluding the common genesis day removes both tracks.
	f, err = Compute(gridRun(t), gridLons, gridLats, Options{
		By:           Genesis,
		ExcludeFirst: &MonthDay{Month: time.October, Day: 14},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Values[0][0]; got != 0 {
		t.Errorf("excluded genesis cell = %v, want 0", got)
	}

	f, err = Compute(gridRun(t), gridLons, gridLats, Options{By: Lysis})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f.Values[0][0]+f.Values[0][1], 2.0; got != want {
		t.Errorf("total lysis count = %v, want %v", got, want)
	}
}

func TestCompute_AreaWeighting(t *testing.T) {
	unweighted, err := Compute(gridRun(t), gridLons, gridLats, Options{By: Point})
	if err != nil {
		t.Fatal(err)
	}
	weighted, err := Compute(gridRun(t), gridLons, gridLats, Options{By: Point, WeightByArea: true})
	if err != nil {
		t.Fatal(err)
	}
	if weighted.Units != "km-2" {
		t.Errorf("units = %q, want km-2", weighted.Units)
	}

	areas := CellAreasKM2(CellBounds(gridLons), CellBounds(gridLats))
	want := unweighted.Values[0][0] / areas[0][0]
	if got := weighted.Values[0][0]; math.Abs(got-want) > 1e-12 {
		t.Errorf("weighted cell = %v, want %v", got, want)
	}
}

func TestCompute_RejectsDescendingGrid(t *testing.T) {
	_, err := Compute(gridRun(t), []float64{30, 20, 10}, gridLats, Options{})
	if !errors.Is(err, ErrGridOrder) {
		t.Errorf("error = %v, want ErrGridOrder", err)
	}
}

func TestCellBoundsCentresInverse(t *testing.T) {
	centres := []float64{10, 20, 30}
	bounds := CellBounds(centres)
	wantBounds := []float64{5, 15, 25, 35}
	for i := range wantBounds {
		if math.Abs(bounds[i]-wantBounds[i]) > 1e-12 {
			t.Errorf("bounds[%d] = %v, want %v", i, bounds[i], wantBounds[i])
		}
	}
	back := CellCentres(bounds)
	for i := range centres {
		if math.Abs(back[i]-centres[i]) > 1e-12 {
			t.Errorf("centres[%d] = %v, want %v", i, back[i], centres[i])
		}
	}
}

func TestCellAreas_SumsToSphere(t *testing.T) {
	// A full-globe grid's cells must sum to the sphere's surface area.
	lonB := CellBounds([]float64{-135, -45, 45, 135})
	latB := []float64{-90, -30, 30, 90}

	total := 0.0
	for _, row := range CellAreasKM2(lonB, latB) {
		for _, a := range row {
			total += a
		}
	}
	want := 4 * math.Pi * 6371.0 * 6371.0
	if math.Abs(total-want)/want > 1e-9 {
		t.Errorf("total area = %v, want %v", total, want)
	}
}
