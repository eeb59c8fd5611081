// Package loader reads tracker output into a run: per-track "vortrack"
// text files produced by PMCTRACK-style algorithms, CSV exports, and the
// tracker's .conf settings file. It hands fully parsed records to the run
// and does no analysis of its own.
package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pmctools/cyclotrack/internal/geo"
	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

// TimeLayout is the timestamp format of vortrack files, e.g. 200810141200.
const TimeLayout = "200601021504"

// vortrackPattern matches the per-track output files inside a tracking
// output directory.
const vortrackPattern = "vortrack*.txt"

// LoadDir reads every vortrack file of one tracking output directory into
// a new run, assigning track ids in sorted file order. A .conf file in
// the directory, when present, is parsed into the run's settings; its
// "dt" key (seconds) sets the nominal time step, otherwise the step is
// inferred from the data. A directory without track files yields a valid
// empty run.
func LoadDir(dir string) (*trackrun.Run, error) {
	run := trackrun.New(0)
	if err := LoadDirInto(run, dir); err != nil {
		return nil, err
	}
	return run, nil
}

// LoadDirInto appends the contents of a tracking output directory to an
// existing run.
func LoadDirInto(run *trackrun.Run, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, vortrackPattern))
	if err != nil {
		return fmt.Errorf("loader: discover %s: %w", dir, err)
	}
	sort.Strings(files)

	run.AddSource(dir)

	if confs, _ := filepath.Glob(filepath.Join(dir, "*.conf")); len(confs) > 0 {
		sort.Strings(confs)
		settings, err := loadConf(confs[0])
		if err != nil {
			return err
		}
		run.MergeSettings(settings)
		if dt, ok := settings.Float("dt"); ok && dt > 0 {
			run.SetTstepH(dt / 3600.0)
		}
	}

	for _, file := range files {
		obs, err := loadVortrackFile(file)
		if err != nil {
			return err
		}
		if _, err := run.AppendObservations(obs); err != nil {
			return fmt.Errorf("loader: %s: %w", file, err)
		}
	}

	run.InferTstep()
	return nil
}

func loadVortrackFile(path string) ([]track.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	obs, err := ParseVortrack(f)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return obs, nil
}

// ParseVortrack parses one vortrack file: whitespace-separated rows of
// lon lat vort time area vortex_type, one observation per line.
func ParseVortrack(r io.Reader) ([]track.Observation, error) {
	var obs []track.Observation
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 6 {
			return nil, fmt.Errorf("line %d: expected 6 columns, got %d", line, len(fields))
		}
		o, err := parseObservation(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		obs = append(obs, o)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return obs, nil
}

func parseObservation(fields []string) (track.Observation, error) {
	var o track.Observation
	var err error

	if o.Lon, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return o, fmt.Errorf("lon: %w", err)
	}
	o.Lon = geo.NormalizeLon(o.Lon)
	if o.Lat, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return o, fmt.Errorf("lat: %w", err)
	}
	if o.Vort, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return o, fmt.Errorf("vort: %w", err)
	}
	if o.Time, err = parseTime(fields[3]); err != nil {
		return o, fmt.Errorf("time: %w", err)
	}
	if o.Area, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return o, fmt.Errorf("area: %w", err)
	}
	if o.VortexType, err = strconv.Atoi(fields[5]); err != nil {
		return o, fmt.Errorf("vortex_type: %w", err)
	}
	return o, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// LoadCSV reads a CSV export with the header
// track_id,lon,lat,vort,time,area,vortex_type into a new run. Rows of one
// track must be contiguous and in time order; ids are reassigned in order
// of first appearance.
func LoadCSV(path string) (*trackrun.Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	run := trackrun.New(0)
	run.AddSource(path)
	if err := parseCSVInto(run, f); err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	run.InferTstep()
	return run, nil
}

func parseCSVInto(run *trackrun.Run, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	want := []string{"track_id", "lon", "lat", "vort", "time", "area", "vortex_type"}
	if len(header) != len(want) {
		return fmt.Errorf("expected header %v, got %v", want, header)
	}
	for i := range want {
		if strings.TrimSpace(header[i]) != want[i] {
			return fmt.Errorf("expected header %v, got %v", want, header)
		}
	}

	var curID string
	var cur []track.Observation
	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		_, err := run.AppendObservations(cur)
		cur = nil
		return err
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if rec[0] != curID {
			if err := flush(); err != nil {
				return fmt.Errorf("track %q: %w", curID, err)
			}
			curID = rec[0]
		}
		o, err := parseObservation(rec[1:])
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		cur = append(cur, o)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("track %q: %w", curID, err)
	}
	return nil
}
