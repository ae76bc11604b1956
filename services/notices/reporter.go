package notices

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/gancio-sync/models"
	"go.uber.org/zap"
)

const prefix = "[WPGancio] "

// OutcomeTaker reads and removes an outcome in one step
type OutcomeTaker interface {
	Take(key string) (models.Outcome, bool)
}

// Notice is one rendered admin notice
type Notice struct {
	ID      uuid.UUID          `json:"id"`
	Kind    models.OutcomeKind `json:"kind"`
	Message string             `json:"message"`
	HTML    string             `json:"html"`
}

// Reporter surfaces stored outcomes once
type Reporter struct {
	outcomes OutcomeTaker
	logger   *zap.Logger
}

// NewReporter creates a new reporter
func NewReporter(outcomes OutcomeTaker, logger *zap.Logger) *Reporter {
	return &Reporter{outcomes: outcomes, logger: logger}
}

// Render returns the pending notices of a post, error first, and clears them
func (r *Reporter) Render(postID int64) []Notice {
	notices := make([]Notice, 0, 2)
	for _, kind := range []models.OutcomeKind{models.OutcomeError, models.OutcomeSuccess} {
		outcome, ok := r.outcomes.Take(models.OutcomeKey(kind, postID))
		if !ok {
			continue
		}
		notices = append(notices, Notice{
			ID:      uuid.New(),
			Kind:    kind,
			Message: outcome.Message,
			HTML:    renderHTML(kind, outcome.Message),
		})
	}

	if len(notices) > 0 {
		r.logger.Debug("notices rendered",
			zap.Int64("post_id", postID),
			zap.Int("count", len(notices)))
	}
	return notices
}

// RenderHTML returns the pending notices as admin markup and clears them
func (r *Reporter) RenderHTML(postID int64) string {
	var b strings.Builder
	for _, n := range r.Render(postID) {
		b.WriteString(n.HTML)
	}
	return b.String()
}

// Messages are stored as trusted markup and written unescaped.
func renderHTML(kind models.OutcomeKind, message string) string {
	class := "error"
	if kind == models.OutcomeSuccess {
		class = "notice success"
	}
	return fmt.Sprintf(`<div class="%s"><p>%s%s</p></div>`, class, prefix, message)
}
