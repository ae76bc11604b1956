package sources

import (
	"context"
	"time"

	"github.com/upb/gancio-sync/config"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/services"
)

// Event Organiser storage keys
const (
	eoStartMetaKey   = "_eventorganiser_schedule_start_start"
	eoVenueTaxonomy  = "event-venue"
	eoAddressMetaKey = "_address"
	eoCityMetaKey    = "_city"
)

// EventOrganiser reads events of the Event Organiser plugin
type EventOrganiser struct {
	base
	location   *time.Location
	correction time.Duration
}

// NewEventOrganiser creates the Event Organiser source
func NewEventOrganiser(c config.SourceConfig, deps Deps) *EventOrganiser {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &EventOrganiser{
		base: base{
			name:     c.Type,
			postType: c.PostType,
			taxonomy: c.Taxonomy,
			posts:    deps.Posts,
			terms:    deps.Terms,
			logger:   deps.Logger,
		},
		location:   loc,
		correction: c.Correction(),
	}
}

// Extract implements Source
func (s *EventOrganiser) Extract(ctx context.Context, postID int64) (*models.CanonicalEvent, bool, error) {
	post, ok, err := s.load(ctx, postID)
	if err != nil || !ok {
		return nil, false, err
	}

	raw, err := s.meta(ctx, postID, eoStartMetaKey)
	if err != nil {
		return nil, false, err
	}
	start, err := parseStart(raw, eoStartMetaKey, s.location)
	if err != nil {
		return nil, false, err
	}

	venue, err := s.venue(ctx, postID)
	if err != nil {
		return nil, false, err
	}

	event, err := s.build(ctx, post, start.Add(-s.correction).Unix(), venue)
	if err != nil {
		return nil, false, err
	}
	return event, true, nil
}

// venue resolves the event-venue term. Address is street and city.
func (s *EventOrganiser) venue(ctx context.Context, postID int64) (*models.Venue, error) {
	terms, err := s.terms.GetPostTerms(ctx, postID, eoVenueTaxonomy)
	if err != nil {
		return nil, services.WrapInternal("failed to load venue", err)
	}
	if len(terms) == 0 {
		return nil, nil
	}
	term := terms[0]

	address, _, err := s.terms.GetTermMeta(ctx, term.ID, eoAddressMetaKey)
	if err != nil {
		return nil, services.WrapInternal("failed to load venue address", err)
	}
	city, _, err := s.terms.GetTermMeta(ctx, term.ID, eoCityMetaKey)
	if err != nil {
		return nil, services.WrapInternal("failed to load venue city", err)
	}

	return &models.Venue{
		Name:    term.Name,
		Address: models.JoinAddress(address, city),
	}, nil
}
