// Package config defines the yaml run configuration: where to find
// tracking output, the nominal time step, and named classification rules
// expressed as serializable thresholds instead of ad hoc closures.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pmctools/cyclotrack/internal/classify"
	"github.com/pmctools/cyclotrack/internal/track"
)

const (
	DefaultTstepH       = 3.0
	DefaultMinLifetimeH = 6.0
	DefaultMinGenLysKM  = 300.0
)

type Config struct {
	DataDirs  []string `yaml:"data_dirs"`
	TstepH    float64  `yaml:"tstep_h"`
	Archive   string   `yaml:"archive"`
	Inclusive bool     `yaml:"inclusive"`
	Rules     []Rule   `yaml:"rules"`
}

// Rule is a named classification rule. Every non-nil threshold becomes
// one predicate; a track belongs to the category when all of them hold.
type Rule struct {
	Label              string           `yaml:"label"`
	MinLifetimeH       *float64         `yaml:"min_lifetime_h,omitempty"`
	MaxLifetimeH       *float64         `yaml:"max_lifetime_h,omitempty"`
	MinGenLysDistKM    *float64         `yaml:"min_gen_lys_dist_km,omitempty"`
	MinTotalDistKM     *float64         `yaml:"min_total_dist_km,omitempty"`
	MinMaxVort         *float64         `yaml:"min_max_vort,omitempty"`
	MinVortexTypeShare *VortexTypeShare `yaml:"min_vortex_type_share,omitempty"`
}

// VortexTypeShare requires at least Min of a track's observations to
// carry the given vortex type code.
type VortexTypeShare struct {
	Code int     `yaml:"code"`
	Min  float64 `yaml:"min"`
}

func DefaultConfig() *Config {
	minLifetime := DefaultMinLifetimeH
	minGenLys := DefaultMinGenLysKM
	return &Config{
		TstepH: DefaultTstepH,
		Rules: []Rule{
			{
				Label:           "pmc",
				MinLifetimeH:    &minLifetime,
				MinGenLysDistKM: &minGenLys,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build converts the rule's thresholds into predicates, in declaration
// order.
func (r Rule) Build() classify.Rule {
	var preds []classify.Predicate
	if v := r.MinLifetimeH; v != nil {
		min := *v
		preds = append(preds, func(tr *track.Track) (bool, error) {
			return tr.LifetimeH() >= min, nil
		})
	}
	if v := r.MaxLifetimeH; v != nil {
		max := *v
		preds = append(preds, func(tr *track.Track) (bool, error) {
			return tr.LifetimeH() <= max, nil
		})
	}
	if v := r.MinGenLysDistKM; v != nil {
		min := *v
		preds = append(preds, func(tr *track.Track) (bool, error) {
			return tr.GenLysDistKM() >= min, nil
		})
	}
	if v := r.MinTotalDistKM; v != nil {
		min := *v
		preds = append(preds, func(tr *track.Track) (bool, error) {
			return tr.TotalDistKM() >= min, nil
		})
	}
	if v := r.MinMaxVort; v != nil {
		min := *v
		preds = append(preds, func(tr *track.Track) (bool, error) {
			return tr.MaxVort() >= min, nil
		})
	}
	if v := r.MinVortexTypeShare; v != nil {
		code, min := v.Code, v.Min
		preds = append(preds, func(tr *track.Track) (bool, error) {
			return tr.VortexTypeShare(code) >= min, nil
		})
	}
	return classify.Rule{Label: r.Label, Predicates: preds}
}

// BuildRules converts every configured rule.
func (c *Config) BuildRules() []classify.Rule {
	out := make([]classify.Rule, len(c.Rules))
	for i, r := range c.Rules {
		out[i] = r.Build()
	}
	return out
}
