package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pmctools/cyclotrack/internal/trackrun"
)

func loadConf(path string) (trackrun.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	s, err := ParseConf(f)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return s, nil
}

// ParseConf parses a tracker settings file of "key = value" lines.
// Blank lines and #-comments are skipped; values keep their raw text
// with surrounding quotes removed.
func ParseConf(r io.Reader) (trackrun.Settings, error) {
	settings := trackrun.Settings{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.Index(text, "#"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		key, value, found := strings.Cut(text, "=")
		if !found {
			return nil, fmt.Errorf("line %d: expected key = value, got %q", line, text)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", line)
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		settings[key] = value
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}
