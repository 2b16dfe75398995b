package notify

import (
	"context"

	"tanishuv-bot/internal/db"
)

// Notifier delivers rendered messages to a chat. The Telegram implementation
// is the production one; Discard serves tests and the seed tool.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	// SendProfileCard sends the profile's photo album with the caption on the
	// first photo. Falls back to plain text for photoless profiles.
	SendProfileCard(ctx context.Context, chatID int64, p *db.Profile, caption string) error
}

// Discard drops every message. Used in tests and offline tooling.
type Discard struct{}

func (Discard) SendText(context.Context, int64, string) error { return nil }

func (Discard) SendProfileCard(context.Context, int64, *db.Profile, string) error { return nil }
