package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
	"tanishuv-bot/internal/notify"
)

func candidateKeyboard(targetID int64) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("❤️").WithCallbackData(fmt.Sprintf("act_like_%d", targetID)),
			tu.InlineKeyboardButton("👎").WithCallbackData(fmt.Sprintf("act_dislike_%d", targetID)),
			tu.InlineKeyboardButton("⏭").WithCallbackData(fmt.Sprintf("act_skip_%d", targetID)),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🚩 Пожаловаться").WithCallbackData(fmt.Sprintf("report_%d", targetID)),
		),
	)
}

// moderationKeyboard replaces the decision buttons when an operator browses:
// they moderate candidates instead of matching with them.
func moderationKeyboard(targetID int64) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🚫 Заблокировать").WithCallbackData(fmt.Sprintf("mod_block_%d", targetID)),
			tu.InlineKeyboardButton("✅ Разблокировать").WithCallbackData(fmt.Sprintf("mod_unblock_%d", targetID)),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🗑 Удалить").WithCallbackData(fmt.Sprintf("mod_delete_%d", targetID)),
			tu.InlineKeyboardButton("✉️ Написать").WithCallbackData(fmt.Sprintf("mod_msg_%d", targetID)),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("⏭ Дальше").WithCallbackData("mod_next"),
		),
	)
}

// handleMenuCallback routes the main menu buttons.
func (b *Bot) handleMenuCallback(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	defer b.answerCallback(ctx, callback.ID)

	switch strings.TrimPrefix(callback.Data, "menu_") {
	case "browse":
		b.sessions.get(userID).state = stateBrowsing
		b.showNextCandidate(ctx, userID)
	case "likes":
		b.sessions.get(userID).state = stateViewingLikes
		b.showNextIncoming(ctx, userID)
	case "profile":
		b.showOwnProfile(ctx, userID)
	case "invite":
		b.sendInviteLink(ctx, userID)
	case "delete":
		kb := tu.InlineKeyboard(tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Да, удалить").WithCallbackData("delete_confirm"),
		))
		b.sendWithKeyboard(ctx, userID, "Удалить анкету безвозвратно? Лайки, приглашения и история тоже исчезнут.", kb)
	}
	return nil
}

func (b *Bot) showNextCandidate(ctx *th.Context, userID int64) {
	candidate, err := b.matching.NextCandidate(ctx.Context(), userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		b.sessions.get(userID).state = stateIdle
		b.sendWithKeyboard(ctx, userID, "Анкеты закончились. Загляни позже!", mainMenu())
		return
	case errors.Is(err, domain.ErrPreconditionFailed):
		b.send(ctx, userID, "Твоя анкета заблокирована. Напиши в поддержку.")
		return
	case err != nil:
		b.appCtx.Logger.Error("failed to pick candidate", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return
	}

	kb := candidateKeyboard(candidate.UserID)
	if operator, err := b.admins.IsAdmin(ctx.Context(), userID); err == nil && operator {
		kb = moderationKeyboard(candidate.UserID)
	}
	b.sendCard(ctx, userID, candidate, kb)
}

func (b *Bot) showNextIncoming(ctx *th.Context, userID int64) {
	incoming, err := b.matching.NextIncomingLike(ctx.Context(), userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		b.sessions.get(userID).state = stateIdle
		b.sendWithKeyboard(ctx, userID, "Новых лайков пока нет.", mainMenu())
		return
	case err != nil:
		b.appCtx.Logger.Error("failed to pick incoming like", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return
	}
	if incoming.Mutual {
		b.send(ctx, userID, "💕 У вас взаимная симпатия:")
	} else {
		b.send(ctx, userID, "💌 Твоя анкета понравилась этому человеку:")
	}
	b.sendCard(ctx, userID, incoming.Profile, candidateKeyboard(incoming.Profile.UserID))
}

func (b *Bot) sendCard(ctx *th.Context, userID int64, p *db.Profile, kb *telego.InlineKeyboardMarkup) {
	if err := b.notifier.SendProfileCard(ctx.Context(), userID, p, notify.FormatProfile(p)); err != nil {
		b.appCtx.Logger.Warn("failed to send candidate card", "user", userID, "error", err)
	}
	b.sendWithKeyboard(ctx, userID, "Твоё решение?", kb)
}

// handleModerationCallback applies an operator's action on a browsed card and
// shows the next candidate.
func (b *Bot) handleModerationCallback(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	defer b.answerCallback(ctx, callback.ID)

	if callback.Data == "mod_next" {
		b.showNextCandidate(ctx, userID)
		return nil
	}

	verb, idStr, found := strings.Cut(strings.TrimPrefix(callback.Data, "mod_"), "_")
	if !found {
		return nil
	}
	targetID, err := parseID(idStr)
	if err != nil {
		return nil
	}

	switch verb {
	case "block", "unblock":
		err := b.admins.SetBlocked(ctx.Context(), userID, targetID, verb == "block")
		switch {
		case errors.Is(err, domain.ErrPreconditionFailed):
			b.send(ctx, userID, "Команда доступна только администраторам.")
			return nil
		case err != nil:
			b.appCtx.Logger.Error("moderation toggle failed", "target", targetID, "error", err)
			b.send(ctx, userID, "Не получилось изменить статус.")
			return nil
		}
		if verb == "block" {
			b.send(ctx, userID, fmt.Sprintf("Пользователь %d заблокирован. 🚫", targetID))
		} else {
			b.send(ctx, userID, fmt.Sprintf("Пользователь %d разблокирован.", targetID))
		}
	case "delete":
		if !b.requireAdmin(ctx, userID) {
			return nil
		}
		if err := b.profiles.Delete(ctx.Context(), targetID); err != nil {
			b.appCtx.Logger.Error("moderation delete failed", "target", targetID, "error", err)
			b.send(ctx, userID, "Не получилось удалить анкету.")
			return nil
		}
		b.send(ctx, userID, fmt.Sprintf("Анкета %d удалена.", targetID))
	case "msg":
		if !b.requireAdmin(ctx, userID) {
			return nil
		}
		sess := b.sessions.get(userID)
		sess.state = stateAwaitAdminMessage
		sess.targetID = targetID
		b.send(ctx, userID, fmt.Sprintf("Пришли текст для пользователя %d (или «%s»):", targetID, cancelWord))
		return nil
	default:
		return nil
	}

	b.showNextCandidate(ctx, userID)
	return nil
}

// handleActionCallback applies a like/dislike/skip button tap and advances
// the active queue.
func (b *Bot) handleActionCallback(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	defer b.answerCallback(ctx, callback.ID)

	rest := strings.TrimPrefix(callback.Data, "act_")
	actionStr, idStr, found := strings.Cut(rest, "_")
	if !found {
		return nil
	}
	targetID, err := parseID(idStr)
	if err != nil {
		return nil
	}

	outcome, events, err := b.matching.ApplyAction(ctx.Context(), userID, targetID, domain.Action(actionStr))
	if err != nil {
		b.appCtx.Logger.Error("failed to apply action", "user", userID, "target", targetID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return nil
	}
	b.dispatcher.Dispatch(ctx.Context(), events)

	switch outcome {
	case domain.OutcomeQuotaExceeded:
		b.sendWithKeyboard(ctx, userID,
			fmt.Sprintf("Лимит %d лайков в сутки исчерпан. ⭐ Премиум снимает ограничение — пригласи %d друзей!",
				domain.MaxDailyLikes, domain.ReferralThreshold), mainMenu())
		return nil
	case domain.OutcomeActorBlocked:
		b.send(ctx, userID, "Твоя анкета заблокирована, лайки недоступны.")
		return nil
	case domain.OutcomeTargetBlocked, domain.OutcomeTargetUnavailable:
		b.send(ctx, userID, "Эта анкета больше недоступна.")
	}

	// advance whichever queue is open
	if b.sessions.get(userID).state == stateViewingLikes {
		b.showNextIncoming(ctx, userID)
	} else {
		b.showNextCandidate(ctx, userID)
	}
	return nil
}

// handleReportCallback opens the free-text report conversation.
func (b *Bot) handleReportCallback(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	defer b.answerCallback(ctx, callback.ID)

	targetID, err := parseID(strings.TrimPrefix(callback.Data, "report_"))
	if err != nil {
		return nil
	}
	sess := b.sessions.get(userID)
	sess.state = stateAwaitReportReason
	sess.targetID = targetID
	b.send(ctx, userID, fmt.Sprintf("Опиши, что не так с этой анкетой (или «%s»):", cancelWord))
	return nil
}

func (b *Bot) finishReport(ctx *th.Context, userID int64, sess *session, reason string) {
	targetID := sess.targetID
	b.sessions.reset(userID)
	if reason == "" {
		b.sendWithKeyboard(ctx, userID, "Пустая жалоба отменена.", mainMenu())
		return
	}

	events, err := b.admins.FileReport(ctx.Context(), userID, targetID, reason)
	if err != nil {
		b.appCtx.Logger.Error("failed to file report", "user", userID, "target", targetID, "error", err)
		b.send(ctx, userID, "Не получилось отправить жалобу, попробуй позже.")
		return
	}
	b.dispatcher.Dispatch(ctx.Context(), events)
	b.sendWithKeyboard(ctx, userID, "Жалоба отправлена модераторам. Спасибо!", mainMenu())
}

// handleDeleteCommand and handleDeleteConfirm implement two-step account
// deletion.
func (b *Bot) handleDeleteCommand(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	kb := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Да, удалить").WithCallbackData("delete_confirm"),
	))
	b.sendWithKeyboard(ctx, userID, "Удалить анкету безвозвратно? Лайки, приглашения и история тоже исчезнут.", kb)
	return nil
}

func (b *Bot) handleDeleteConfirm(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	userID := callback.From.ID
	defer b.answerCallback(ctx, callback.ID)

	err := b.profiles.Delete(ctx.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Анкеты и так нет.")
		return nil
	}
	if err != nil {
		b.appCtx.Logger.Error("failed to delete account", "user", userID, "error", err)
		b.send(ctx, userID, "Не получилось удалить анкету, попробуй позже.")
		return nil
	}
	b.sessions.reset(userID)
	b.send(ctx, userID, "Анкета удалена. Возвращайся!")
	return nil
}

// handleStatus shows premium status and the referral progress.
func (b *Bot) handleStatus(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	st, err := b.entitlement.Status(ctx.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Анкеты ещё нет.")
		return nil
	}
	if err != nil {
		b.appCtx.Logger.Error("failed to load status", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return nil
	}
	if st.JustExpired {
		b.dispatcher.Dispatch(ctx.Context(), []notify.Event{{
			Kind:      notify.EventPremiumExpired,
			Recipient: userID,
		}})
	}
	b.send(ctx, userID, statusLine(st))
	return nil
}

// handleBoost lets a premium user bump their profile in candidate ranking.
func (b *Bot) handleBoost(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	st, err := b.entitlement.Status(ctx.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Анкеты ещё нет.")
		return nil
	}
	if err != nil {
		b.appCtx.Logger.Error("failed to load status", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return nil
	}
	if !st.Premium {
		b.send(ctx, userID, "Буст доступен только с премиумом. ⭐")
		return nil
	}
	if err := b.entitlement.Boost(ctx.Context(), userID); err != nil {
		b.appCtx.Logger.Error("failed to boost", "user", userID, "error", err)
		b.send(ctx, userID, "Что-то пошло не так, попробуй ещё раз.")
		return nil
	}
	b.send(ctx, userID, "🚀 Твоя анкета поднята в выдаче!")
	return nil
}

func (b *Bot) handleInvite(ctx *th.Context, update telego.Update) error {
	b.sendInviteLink(ctx, update.Message.From.ID)
	return nil
}

func (b *Bot) sendInviteLink(ctx *th.Context, userID int64) {
	b.send(ctx, userID, fmt.Sprintf(
		"Приглашай друзей и получай премиум!\n\nЗа каждого друга после %d-го — сутки премиума.\n\nТвоя ссылка:\n%s",
		domain.ReferralThreshold, b.inviteLink(userID)))
}
