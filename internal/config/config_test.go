package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pmctools/cyclotrack/internal/classify"
	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyclotrack.yml")
	cfg := DefaultConfig()
	cfg.DataDirs = []string{"/data/run01", "/data/run02"}
	cfg.Archive = "/data/run01.mpk"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.TstepH != cfg.TstepH {
		t.Errorf("TstepH = %v, want %v", loaded.TstepH, cfg.TstepH)
	}
	if len(loaded.DataDirs) != 2 || loaded.DataDirs[0] != "/data/run01" {
		t.Errorf("DataDirs = %v", loaded.DataDirs)
	}
	if len(loaded.Rules) != 1 || loaded.Rules[0].Label != "pmc" {
		t.Fatalf("Rules = %+v", loaded.Rules)
	}
	if loaded.Rules[0].MinLifetimeH == nil || *loaded.Rules[0].MinLifetimeH != DefaultMinLifetimeH {
		t.Errorf("MinLifetimeH = %v", loaded.Rules[0].MinLifetimeH)
	}
	if loaded.Rules[0].MaxLifetimeH != nil {
		t.Errorf("unset threshold survived round trip: %v", *loaded.Rules[0].MaxLifetimeH)
	}
}

func TestRuleBuild(t *testing.T) {
	minLifetime := 6.0
	minShare := 0.8
	rule := Rule{
		Label:              "pmc",
		MinLifetimeH:       &minLifetime,
		MinVortexTypeShare: &VortexTypeShare{Code: 0, Min: minShare},
	}

	built := rule.Build()
	if built.Label != "pmc" {
		t.Errorf("label = %q", built.Label)
	}
	if len(built.Predicates) != 2 {
		t.Fatalf("predicate count = %d, want 2", len(built.Predicates))
	}

	// A long track dominated by vortex type 0 passes both predicates.
	t0 := time.Date(2008, 10, 14, 0, 0, 0, 0, time.UTC)
	obs := make([]track.Observation, 8)
	for i := range obs {
		obs[i] = track.Observation{Lon: 9.3, Lat: 79.2, Time: t0.Add(time.Duration(i) * time.Hour)}
	}
	r := trackrun.New(1)
	if _, err := r.AppendObservations(obs); err != nil {
		t.Fatal(err)
	}

	if err := classify.Apply(r, []classify.Rule{built}, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	n, err := r.CategorySize("pmc")
	if err != nil || n != 1 {
		t.Errorf("CategorySize = %d, %v, want 1", n, err)
	}
}

func TestRuleBuild_FailingThreshold(t *testing.T) {
	maxLifetime := 2.0
	rule := Rule{Label: "short", MaxLifetimeH: &maxLifetime}

	t0 := time.Date(2008, 10, 14, 0, 0, 0, 0, time.UTC)
	obs := make([]track.Observation, 8) // 7 h lifetime
	for i := range obs {
		obs[i] = track.Observation{Lon: 9.3, Lat: 79.2, Time: t0.Add(time.Duration(i) * time.Hour)}
	}
	r := trackrun.New(1)
	if _, err := r.AppendObservations(obs); err != nil {
		t.Fatal(err)
	}

	if err := classify.Apply(r, []classify.Rule{rule.Build()}, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	n, err := r.CategorySize("short")
	if err != nil || n != 0 {
		t.Errorf("CategorySize = %d, %v, want 0", n, err)
	}
}
