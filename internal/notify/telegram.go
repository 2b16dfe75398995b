package notify

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tanishuv-bot/internal/db"
)

// TelegramNotifier sends messages through the Bot API.
type TelegramNotifier struct {
	bot *telego.Bot
}

func NewTelegramNotifier(bot *telego.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (n *TelegramNotifier) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

func (n *TelegramNotifier) SendProfileCard(ctx context.Context, chatID int64, p *db.Profile, caption string) error {
	if len(p.Photos) == 0 {
		return n.SendText(ctx, chatID, caption)
	}
	media := make([]telego.InputMedia, 0, len(p.Photos))
	for i, fileID := range p.Photos {
		photo := tu.MediaPhoto(tu.FileFromID(fileID))
		if i == 0 {
			photo = photo.WithCaption(caption)
		}
		media = append(media, photo)
	}
	_, err := n.bot.SendMediaGroup(ctx, tu.MediaGroup(tu.ID(chatID), media...))
	if err != nil {
		return fmt.Errorf("failed to send profile card to %d: %w", chatID, err)
	}
	return nil
}
