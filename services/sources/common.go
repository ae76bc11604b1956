package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"github.com/upb/gancio-sync/services"
	"go.uber.org/zap"
)

// dateTimeLayout is the plugins' database datetime format
const dateTimeLayout = "2006-01-02 15:04:05"

// base holds what both plugin variants share
type base struct {
	name     string
	postType string
	taxonomy string
	posts    repositories.PostRepository
	terms    repositories.TermRepository
	logger   *zap.Logger
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Manages(postType string) bool {
	return postType == b.postType
}

// load fetches the post and decides whether it is eligible for sync
func (b *base) load(ctx context.Context, postID int64) (*models.Post, bool, error) {
	post, err := b.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, services.ErrPostNotFound
		}
		return nil, false, services.WrapInternal("failed to load post", err)
	}

	if !post.IsPublished() {
		b.logger.Debug("skipping unpublished post",
			zap.String("source", b.name),
			zap.Int64("post_id", postID),
			zap.String("status", post.Status))
		return post, false, nil
	}
	if !b.Manages(post.Type) {
		b.logger.Debug("skipping foreign post type",
			zap.String("source", b.name),
			zap.Int64("post_id", postID),
			zap.String("post_type", post.Type))
		return post, false, nil
	}
	return post, true, nil
}

// build assembles the canonical event common to both sources
func (b *base) build(ctx context.Context, post *models.Post, start int64, venue *models.Venue) (*models.CanonicalEvent, error) {
	event := models.NewCanonicalEvent(post.Title, post.Content, start)

	terms, err := b.terms.GetPostTerms(ctx, post.ID, b.taxonomy)
	if err != nil {
		return nil, services.WrapInternal("failed to load tags", err)
	}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		slug := Slugify(t.Name)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		event.Tags = append(event.Tags, slug)
	}

	if venue != nil {
		event.PlaceName = venue.Name
		event.PlaceAddress = venue.Address
	}

	image, err := b.posts.GetThumbnailURL(ctx, post.ID)
	if err != nil {
		return nil, services.WrapInternal("failed to load featured image", err)
	}
	if isAbsoluteHTTPURL(image) {
		event.ImageURL = image
	}

	return event, nil
}

// meta returns a trimmed post meta value, empty when unset
func (b *base) meta(ctx context.Context, postID int64, key string) (string, error) {
	value, _, err := b.posts.GetMeta(ctx, postID, key)
	if err != nil {
		return "", services.WrapInternal(fmt.Sprintf("failed to read %s", key), err)
	}
	return strings.TrimSpace(value), nil
}

// parseStart parses a plugin datetime in loc
func parseStart(value, key string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, services.NewDomainError(services.ErrorTypeValidation, "event has no start date", nil).
			WithDetail("meta_key", key)
	}
	t, err := time.ParseInLocation(dateTimeLayout, value, loc)
	if err != nil {
		return time.Time{}, services.NewDomainError(services.ErrorTypeValidation, "invalid event start date", err).
			WithDetail("meta_key", key).
			WithDetail("value", value)
	}
	return t, nil
}

func isAbsoluteHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
