package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source type identifiers
const (
	SourceEventOrganiser = "eventorganiser"
	SourceEventsCalendar = "eventscalendar"
)

// defaultStartCorrection compensates the two hour shift of the TEC start date
const defaultStartCorrection = 2 * time.Hour

// SourceConfig configures one event plugin integration
type SourceConfig struct {
	Type     string `yaml:"type"`      // eventorganiser | eventscalendar
	Enabled  *bool  `yaml:"enabled"`   // defaults to true
	PostType string `yaml:"post_type"` // event | tribe_events
	Taxonomy string `yaml:"taxonomy"`  // tag taxonomy: event-tag | post_tag
	// StartCorrection is subtracted from the parsed start date.
	StartCorrection *time.Duration `yaml:"start_correction"`
}

// IsEnabled reports whether the source is enabled
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Correction returns the start correction, falling back to the type default
func (s SourceConfig) Correction() time.Duration {
	if s.StartCorrection != nil {
		return *s.StartCorrection
	}
	if s.Type == SourceEventsCalendar {
		return defaultStartCorrection
	}
	return 0
}

// SourcesConfig is the content of the optional sources file
type SourcesConfig struct {
	Sources []SourceConfig `yaml:"sources"`
}

// DefaultSources enables both supported plugins with their stock settings
func DefaultSources() SourcesConfig {
	return SourcesConfig{
		Sources: []SourceConfig{
			{Type: SourceEventOrganiser, PostType: "event", Taxonomy: "event-tag"},
			{Type: SourceEventsCalendar, PostType: "tribe_events", Taxonomy: "post_tag"},
		},
	}
}

// LoadSources reads the sources file. An empty path yields DefaultSources.
func LoadSources(path string) (SourcesConfig, error) {
	if path == "" {
		return DefaultSources(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return SourcesConfig{}, err
	}
	return ParseSources(b)
}

// ParseSources decodes a sources document and fills per-type defaults
func ParseSources(b []byte) (SourcesConfig, error) {
	var c SourcesConfig
	if err := yaml.Unmarshal(b, &c); err != nil {
		return SourcesConfig{}, fmt.Errorf("invalid sources file: %w", err)
	}
	defaults := map[string]SourceConfig{}
	for _, d := range DefaultSources().Sources {
		defaults[d.Type] = d
	}
	for i := range c.Sources {
		d, ok := defaults[c.Sources[i].Type]
		if !ok {
			continue
		}
		if c.Sources[i].PostType == "" {
			c.Sources[i].PostType = d.PostType
		}
		if c.Sources[i].Taxonomy == "" {
			c.Sources[i].Taxonomy = d.Taxonomy
		}
	}
	return c, nil
}

// Validate checks source types and duplicate post types
func (c SourcesConfig) Validate() error {
	seen := map[string]string{}
	for _, s := range c.Sources {
		switch s.Type {
		case SourceEventOrganiser, SourceEventsCalendar:
		default:
			return fmt.Errorf("unknown source type: %s", s.Type)
		}
		if !s.IsEnabled() {
			continue
		}
		if other, ok := seen[s.PostType]; ok {
			return fmt.Errorf("post type %q managed by both %s and %s", s.PostType, other, s.Type)
		}
		seen[s.PostType] = s.Type
	}
	return nil
}

// Enabled returns the enabled sources in declaration order
func (c SourcesConfig) Enabled() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}
