package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/notify"
	"tanishuv-bot/internal/service/entitlement"
)

func mainMenu() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👀 Смотреть анкеты").WithCallbackData("menu_browse"),
			tu.InlineKeyboardButton("💌 Мои лайки").WithCallbackData("menu_likes"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👤 Моя анкета").WithCallbackData("menu_profile"),
			tu.InlineKeyboardButton("🤝 Пригласить друзей").WithCallbackData("menu_invite"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🗑 Удалить анкету").WithCallbackData("menu_delete"),
		),
	)
}

// handleStart greets the user. The /start payload may carry an invite code
// (ref_<inviter id>), credited on the newcomer's first contact.
func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	userID := msg.From.ID

	var inviterID int64
	if args := commandArgs(msg.Text); strings.HasPrefix(args, "ref_") {
		if id, err := strconv.ParseInt(strings.TrimPrefix(args, "ref_"), 10, 64); err == nil {
			inviterID = id
		}
	}

	_, err := b.profiles.Get(ctx.Context(), userID)
	switch {
	case err == nil:
		b.sessions.reset(userID)
		b.sendWithKeyboard(ctx, userID, "С возвращением! 👋", mainMenu())
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		b.appCtx.Logger.Error("failed to load profile", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return nil
	}

	if inviterID != 0 {
		events, err := b.entitlement.RecordInvitation(ctx.Context(), inviterID, userID)
		if err != nil {
			b.appCtx.Logger.Warn("failed to record invitation",
				"inviter", inviterID, "invited", userID, "error", err)
		} else {
			b.dispatcher.Dispatch(ctx.Context(), events)
		}
	}

	b.send(ctx, userID, "Привет! 👋 Анкеты здесь появляются после модерации. Как только твоя будет готова, нажми /start ещё раз.")
	return nil
}

// handleConversation feeds free text into whatever prompt the user has open.
// Idle users get nudged to the menu.
func (b *Bot) handleConversation(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)
	sess := b.sessions.get(userID)

	if text == cancelWord {
		b.sessions.reset(userID)
		b.sendWithKeyboard(ctx, userID, "Действие отменено.", mainMenu())
		return nil
	}

	switch sess.state {
	case stateAwaitReportReason:
		b.finishReport(ctx, userID, sess, text)
	case stateAwaitAdminMessage:
		b.finishAdminMessage(ctx, userID, sess, text)
	case stateAwaitBroadcast:
		b.finishBroadcast(ctx, userID, text)
	default:
		b.sendWithKeyboard(ctx, userID, "Выбери действие:", mainMenu())
	}
	return nil
}

// showOwnProfile renders the user's card with premium status attached.
func (b *Bot) showOwnProfile(ctx *th.Context, userID int64) {
	p, err := b.profiles.Get(ctx.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Анкеты ещё нет.")
		return
	}
	if err != nil {
		b.appCtx.Logger.Error("failed to load profile", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return
	}

	st, err := b.entitlement.Status(ctx.Context(), userID)
	if err != nil {
		b.appCtx.Logger.Error("failed to load status", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return
	}
	if st.JustExpired {
		b.dispatcher.Dispatch(ctx.Context(), []notify.Event{{
			Kind:      notify.EventPremiumExpired,
			Recipient: userID,
		}})
	}

	caption := notify.FormatProfile(p) + "\n\n" + statusLine(st)
	if err := b.notifier.SendProfileCard(ctx.Context(), userID, p, caption); err != nil {
		b.appCtx.Logger.Warn("failed to send own profile", "user", userID, "error", err)
	}
	b.sendWithKeyboard(ctx, userID, "Что дальше?", mainMenu())
}

func statusLine(st *entitlement.Status) string {
	if !st.Premium {
		return fmt.Sprintf("Премиум: нет\nПриглашено друзей: %d из %d", st.InvitedCount, domain.ReferralThreshold)
	}
	if st.Expiry == nil {
		return fmt.Sprintf("Премиум: бессрочно ⭐\nПриглашено друзей: %d", st.InvitedCount)
	}
	return fmt.Sprintf("Премиум: до %s ⭐\nПриглашено друзей: %d",
		st.Expiry.Format("02.01.2006 15:04"), st.InvitedCount)
}
