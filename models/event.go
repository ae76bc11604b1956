package models

import "strings"

// PostStatusPublish is the only status that is synchronized
const PostStatusPublish = "publish"

// Post types managed by the supported event plugins
const (
	PostTypeEventOrganiser = "event"
	PostTypeEventsCalendar = "tribe_events"
)

// AddressSeparator joins venue address components
const AddressSeparator = ", "

// CanonicalEvent is the source-agnostic event payload sent to the Gancio API.
// It is built per request and never persisted.
type CanonicalEvent struct {
	ID            *int64   `json:"id,omitempty"`
	Title         string   `json:"title"`
	Tags          []string `json:"tags"`
	Description   string   `json:"description"`
	StartDatetime int64    `json:"start_datetime"`
	PlaceName     string   `json:"place_name"`
	PlaceAddress  string   `json:"place_address"`
	ImageURL      string   `json:"image_url,omitempty"`
}

// NewCanonicalEvent creates an event with an empty, non-nil tag list
func NewCanonicalEvent(title, description string, start int64) *CanonicalEvent {
	return &CanonicalEvent{
		Title:         title,
		Description:   description,
		StartDatetime: start,
		Tags:          []string{},
	}
}

// WithRemoteID returns a copy of the event carrying the bound remote id
func (e CanonicalEvent) WithRemoteID(id int64) *CanonicalEvent {
	e.ID = &id
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return &e
}

// Post is a host content record
type Post struct {
	ID      int64  `json:"id" db:"ID"`
	Type    string `json:"type" db:"post_type"`
	Status  string `json:"status" db:"post_status"`
	Title   string `json:"title" db:"post_title"`
	Content string `json:"content" db:"post_content"`
}

// TableName returns the table name for the Post model
func (Post) TableName() string {
	return "wp_posts"
}

// IsPublished reports whether the post is publicly published
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublish
}

// Term is a taxonomy term attached to a post
type Term struct {
	ID   int64  `json:"id" db:"term_id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Venue is the resolved place of an event
type Venue struct {
	Name    string
	Address string
}

// JoinAddress joins components with AddressSeparator. Empty components are
// kept so the output matches the upstream formatting.
func JoinAddress(parts ...string) string {
	return strings.Join(parts, AddressSeparator)
}
