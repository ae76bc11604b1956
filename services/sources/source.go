package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/gancio-sync/config"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"go.uber.org/zap"
)

// Source converts one event plugin's records into canonical events
type Source interface {
	// Name returns the source identifier used in hook routes
	Name() string

	// Manages reports whether posts of this type belong to the source
	Manages(postType string) bool

	// Extract loads a post and builds its canonical event. The bool is false
	// when the post must not be synchronized (not published, foreign type).
	Extract(ctx context.Context, postID int64) (*models.CanonicalEvent, bool, error)
}

// Deps are the collaborators shared by all sources
type Deps struct {
	Posts    repositories.PostRepository
	Terms    repositories.TermRepository
	Location *time.Location // site timezone, UTC when nil
	Logger   *zap.Logger
}

// NewFromConfig builds a source for one configuration entry
func NewFromConfig(c config.SourceConfig, deps Deps) (Source, error) {
	switch c.Type {
	case config.SourceEventOrganiser:
		return NewEventOrganiser(c, deps), nil
	case config.SourceEventsCalendar:
		return NewEventsCalendar(c, deps), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.Type)
	}
}

// Registry holds the enabled sources
type Registry struct {
	sources []Source
	byName  map[string]Source
}

// NewRegistry creates a registry. Source names must be unique.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{byName: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate source: %s", s.Name())
		}
		r.byName[s.Name()] = s
		r.sources = append(r.sources, s)
	}
	return r, nil
}

// BuildRegistry creates the enabled sources of cfg
func BuildRegistry(cfg config.SourcesConfig, deps Deps) (*Registry, error) {
	enabled := cfg.Enabled()
	sources := make([]Source, 0, len(enabled))
	for _, c := range enabled {
		s, err := NewFromConfig(c, deps)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return NewRegistry(sources...)
}

// Get returns the source registered under name
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// ForPostType returns the source managing postType
func (r *Registry) ForPostType(postType string) (Source, bool) {
	for _, s := range r.sources {
		if s.Manages(postType) {
			return s, true
		}
	}
	return nil, false
}

// Names lists the registered sources in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}
