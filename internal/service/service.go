// Package service implements the ledger's use cases on top of storage.Store.
//
// Every method takes the acting user from the request context (set by
// middleware.RequireAuth) and re-derives that user's role from the group as
// loaded inside the storage transaction.
package service

import (
	"context"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mmynk/kanak/internal/auth"
	"github.com/mmynk/kanak/internal/events"
	"github.com/mmynk/kanak/internal/middleware"
)

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from user supplied free text.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// actorID returns the authenticated user of the request.
func actorID(ctx context.Context) (string, error) {
	id := middleware.GetUserID(ctx)
	if id == "" {
		return "", auth.ErrMissingToken
	}
	return id, nil
}

// publish delivers an event after the change has committed. Failures are
// logged only.
func publish(ctx context.Context, p events.Publisher, event events.MembershipEvent) {
	if err := p.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish membership event",
			"type", event.Type,
			"group_id", event.GroupID,
			"error", err,
		)
	}
}
