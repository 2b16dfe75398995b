// Package bot is the Telegram transport: it routes updates into the
// services and renders their results back into chats.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"tanishuv-bot/internal/app"
	"tanishuv-bot/internal/notify"
	"tanishuv-bot/internal/service/admin"
	"tanishuv-bot/internal/service/entitlement"
	"tanishuv-bot/internal/service/matching"
	"tanishuv-bot/internal/service/profile"
)

const cancelWord = "Отмена"

type Bot struct {
	appCtx   *app.AppContext
	instance *telego.Bot

	profiles    *profile.Service
	matching    *matching.Service
	entitlement *entitlement.Service
	admins      *admin.Service

	notifier   notify.Notifier
	dispatcher *notify.Dispatcher
	sessions   *sessionStore

	username string // bot's own username, for invite links
}

// NewBot wires the transport around an already-constructed service layer.
func NewBot(
	appCtx *app.AppContext,
	instance *telego.Bot,
	profiles *profile.Service,
	matchingSvc *matching.Service,
	ent *entitlement.Service,
	admins *admin.Service,
	notifier notify.Notifier,
	dispatcher *notify.Dispatcher,
) *Bot {
	return &Bot{
		appCtx:      appCtx,
		instance:    instance,
		profiles:    profiles,
		matching:    matchingSvc,
		entitlement: ent,
		admins:      admins,
		notifier:    notifier,
		dispatcher:  dispatcher,
		sessions:    newSessionStore(),
	}
}

// Start begins long polling and blocks until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if info, err := b.instance.GetMe(ctx); err == nil {
		b.username = info.Username
	} else {
		b.appCtx.Logger.Warn("getMe failed, invite links will use a placeholder", "error", err)
	}

	updates, err := b.instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}
	handler, err := th.NewBotHandler(b.instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	// commands
	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleDeleteCommand, th.CommandEqual("delete"))
	handler.Handle(b.handleStatus, th.CommandEqual("status"))
	handler.Handle(b.handleBoost, th.CommandEqual("boost"))
	handler.Handle(b.handleInvite, th.CommandEqual("invite"))

	// operator commands
	handler.Handle(b.handleStats, th.CommandEqual("stats"))
	handler.Handle(b.handleReports, th.CommandEqual("reports"))
	handler.Handle(b.handleBroadcastCommand, th.CommandEqual("broadcast"))
	handler.Handle(b.handleGrant, th.CommandEqual("grant"))
	handler.Handle(b.handleRevoke, th.CommandEqual("revoke"))
	handler.Handle(b.handleAppoint, th.CommandEqual("appoint"))
	handler.Handle(b.handleDismiss, th.CommandEqual("dismiss"))
	handler.Handle(b.handleBlock, th.CommandEqual("block"))
	handler.Handle(b.handleUnblock, th.CommandEqual("unblock"))
	handler.Handle(b.handleAdminMessage, th.CommandEqual("msg"))

	// inline keyboard callbacks
	handler.Handle(b.handleMenuCallback, th.CallbackDataPrefix("menu_"))
	handler.Handle(b.handleActionCallback, th.CallbackDataPrefix("act_"))
	handler.Handle(b.handleReportCallback, th.CallbackDataPrefix("report_"))
	handler.Handle(b.handleModerationCallback, th.CallbackDataPrefix("mod_"))
	handler.Handle(b.handleDeleteConfirm, th.CallbackDataEqual("delete_confirm"))

	// free text feeds whatever prompt is active
	handler.Handle(b.handleConversation, th.AnyMessage())

	go func() {
		<-ctx.Done()
		_ = handler.Stop()
	}()
	b.appCtx.Logger.Info("bot started", "username", b.username)
	return handler.Start()
}

// send is the boilerplate-free reply helper used by every handler.
func (b *Bot) send(ctx *th.Context, chatID int64, text string) {
	_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), text))
	if err != nil {
		b.appCtx.Logger.Warn("failed to send message", "chat", chatID, "error", err)
	}
}

func (b *Bot) sendWithKeyboard(ctx *th.Context, chatID int64, text string, kb *telego.InlineKeyboardMarkup) {
	_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), text).WithReplyMarkup(kb))
	if err != nil {
		b.appCtx.Logger.Warn("failed to send message", "chat", chatID, "error", err)
	}
}

func (b *Bot) answerCallback(ctx *th.Context, id string) {
	if err := ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(id)); err != nil {
		b.appCtx.Logger.Debug("failed to answer callback", "error", err)
	}
}

// commandArgs returns everything after the command itself.
func commandArgs(text string) string {
	if _, rest, found := strings.Cut(text, " "); found {
		return strings.TrimSpace(rest)
	}
	return ""
}

func parseID(arg string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
}

func (b *Bot) inviteLink(userID int64) string {
	username := b.username
	if username == "" {
		username = "tanishuv_bot"
	}
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", username, userID)
}
