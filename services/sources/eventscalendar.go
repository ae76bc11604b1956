package sources

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/upb/gancio-sync/config"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"github.com/upb/gancio-sync/services"
	"go.uber.org/zap"
)

// The Events Calendar storage keys
const (
	tecStartMetaKey   = "_EventStartDate"
	tecVenueIDMetaKey = "_EventVenueID"
)

// tecStateKeys are tried in order; older plugin versions split the field
var tecStateKeys = []string{"_VenueStateProvince", "_VenueState", "_VenueProvince"}

// EventsCalendar reads events of The Events Calendar plugin. Its stored start
// date is read as UTC and shifted back by the configured correction.
type EventsCalendar struct {
	base
	correction time.Duration
}

// NewEventsCalendar creates The Events Calendar source
func NewEventsCalendar(c config.SourceConfig, deps Deps) *EventsCalendar {
	return &EventsCalendar{
		base: base{
			name:     c.Type,
			postType: c.PostType,
			taxonomy: c.Taxonomy,
			posts:    deps.Posts,
			terms:    deps.Terms,
			logger:   deps.Logger,
		},
		correction: c.Correction(),
	}
}

// Extract implements Source
func (s *EventsCalendar) Extract(ctx context.Context, postID int64) (*models.CanonicalEvent, bool, error) {
	post, ok, err := s.load(ctx, postID)
	if err != nil || !ok {
		return nil, false, err
	}

	raw, err := s.meta(ctx, postID, tecStartMetaKey)
	if err != nil {
		return nil, false, err
	}
	start, err := parseStart(raw, tecStartMetaKey, time.UTC)
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

// venue resolves the linked venue post
func (s *EventsCalendar) venue(ctx context.Context, postID int64) (*models.Venue, error) {
	raw, err := s.meta(ctx, postID, tecVenueIDMetaKey)
	if err != nil {
		return nil, err
	}
	venueID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || venueID <= 0 {
		return nil, nil
	}

	venuePost, err := s.posts.GetByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("event references missing venue",
				zap.Int64("post_id", postID),
				zap.Int64("venue_id", venueID))
			return nil, nil
		}
		return nil, services.WrapInternal("failed to load venue", err)
	}

	address, err := s.meta(ctx, venueID, "_VenueAddress")
	if err != nil {
		return nil, err
	}
	zip, err := s.meta(ctx, venueID, "_VenueZip")
	if err != nil {
		return nil, err
	}
	state, err := s.state(ctx, venueID)
	if err != nil {
		return nil, err
	}
	country, err := s.meta(ctx, venueID, "_VenueCountry")
	if err != nil {
		return nil, err
	}

	return &models.Venue{
		Name:    venuePost.Title,
		Address: models.JoinAddress(address, zip, state, country),
	}, nil
}

func (s *EventsCalendar) state(ctx context.Context, venueID int64) (string, error) {
	for _, key := range tecStateKeys {
		v, err := s.meta(ctx, venueID, key)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}
	return "", nil
}
