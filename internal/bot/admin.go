package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tanishuv-bot/internal/domain"
)

// requireAdmin answers false (and tells the user off) when the caller is not
// an operator.
func (b *Bot) requireAdmin(ctx *th.Context, userID int64) bool {
	ok, err := b.admins.IsAdmin(ctx.Context(), userID)
	if err != nil {
		b.appCtx.Logger.Error("admin check failed", "user", userID, "error", err)
		return false
	}
	if !ok {
		b.send(ctx, userID, "Команда доступна только администраторам.")
	}
	return ok
}

func (b *Bot) handleStats(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	if !b.requireAdmin(ctx, userID) {
		return nil
	}
	st, err := b.admins.Stats(ctx.Context(), userID)
	if err != nil {
		b.appCtx.Logger.Error("failed to gather stats", "error", err)
		b.send(ctx, userID, "Не получилось собрать статистику.")
		return nil
	}
	b.send(ctx, userID, fmt.Sprintf(
		"📊 Статистика\n\nАнкет: %d\nПремиум: %d\nЗаблокировано: %d\nЛайков: %d\nВзаимных пар: %d\nАктивных пользователей: %d",
		st.Users, st.Premium, st.Blocked, st.Likes, st.MutualPairs, st.DistinctLikers))
	return nil
}

func (b *Bot) handleReports(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	if !b.requireAdmin(ctx, userID) {
		return nil
	}
	reports, err := b.admins.ListReports(ctx.Context(), userID)
	if err != nil {
		b.appCtx.Logger.Error("failed to list reports", "error", err)
		b.send(ctx, userID, "Не получилось загрузить жалобы.")
		return nil
	}
	if len(reports) == 0 {
		b.send(ctx, userID, "Жалоб нет. 🎉")
		return nil
	}
	var sb strings.Builder
	sb.WriteString("🚩 Последние жалобы:\n")
	for _, r := range reports {
		fmt.Fprintf(&sb, "\n%s — %d на %d: %s",
			r.CreatedAt.Format("02.01 15:04"), r.UserID, r.TargetID, r.Detail)
	}
	b.send(ctx, userID, sb.String())
	return nil
}

// handleBroadcastCommand accepts /broadcast <text> directly or opens a
// conversation when the text is missing.
func (b *Bot) handleBroadcastCommand(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	if !b.requireAdmin(ctx, userID) {
		return nil
	}
	if text := commandArgs(update.Message.Text); text != "" {
		b.finishBroadcast(ctx, userID, text)
		return nil
	}
	b.sessions.get(userID).state = stateAwaitBroadcast
	b.send(ctx, userID, fmt.Sprintf("Пришли текст рассылки (или «%s»):", cancelWord))
	return nil
}

func (b *Bot) finishBroadcast(ctx *th.Context, userID int64, text string) {
	b.sessions.reset(userID)
	if text == "" {
		b.send(ctx, userID, "Пустая рассылка отменена.")
		return
	}
	b.send(ctx, userID, "Рассылка запущена…")
	sent, err := b.admins.Broadcast(ctx.Context(), userID, text)
	if err != nil {
		b.appCtx.Logger.Error("broadcast failed", "error", err)
		b.send(ctx, userID, fmt.Sprintf("Рассылка прервана после %d сообщений.", sent))
		return
	}
	b.send(ctx, userID, fmt.Sprintf("Готово, доставлено %d сообщений.", sent))
}

// handleGrant: /grant <user id> [hours], no hours meaning permanent.
func (b *Bot) handleGrant(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	if !b.requireAdmin(ctx, userID) {
		return nil
	}
	fields := strings.Fields(commandArgs(update.Message.Text))
	if len(fields) == 0 {
		b.send(ctx, userID, "Использование: /grant <id> [часов]")
		return nil
	}
	targetID, err := parseID(fields[0])
	if err != nil {
		b.send(ctx, userID, "Использование: /grant <id> [часов]")
		return nil
	}
	var d time.Duration
	if len(fields) > 1 {
		hours, err := strconv.Atoi(fields[1])
		if err != nil || hours <= 0 {
			b.send(ctx, userID, "Часы должны быть положительным числом.")
			return nil
		}
		d = time.Duration(hours) * time.Hour
	}

	events, err := b.entitlement.Grant(ctx.Context(), userID, targetID, d)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Такого пользователя нет.")
		return nil
	}
	if err != nil {
		b.appCtx.Logger.Error("grant failed", "target", targetID, "error", err)
		b.send(ctx, userID, "Не получилось выдать премиум.")
		return nil
	}
	b.dispatcher.Dispatch(ctx.Context(), events)
	b.send(ctx, userID, fmt.Sprintf("Премиум выдан пользователю %d. ⭐", targetID))
	return nil
}

func (b *Bot) handleRevoke(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	if !b.requireAdmin(ctx, userID) {
		return nil
	}
	targetID, err := parseID(commandArgs(update.Message.Text))
	if err != nil {
		b.send(ctx, userID, "Использование: /revoke <id>")
		return nil
	}
	err = b.entitlement.Revoke(ctx.Context(), userID, targetID)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Такого пользователя нет.")
		return nil
	}
	if err != nil {
		b.appCtx.Logger.Error("revoke failed", "target", targetID, "error", err)
		b.send(ctx, userID, "Не получилось снять премиум.")
		return nil
	}
	b.send(ctx, userID, fmt.Sprintf("Премиум снят с пользователя %d.", targetID))
	return nil
}

// handleAppoint and handleDismiss manage the roster; the service enforces
// that only the super admin may call them.
func (b *Bot) handleAppoint(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	targetID, err := parseID(commandArgs(update.Message.Text))
	if err != nil {
		b.send(ctx, userID, "Использование: /appoint <id>")
		return nil
	}
	switch err := b.admins.Appoint(ctx.Context(), userID, targetID); {
	case errors.Is(err, domain.ErrPreconditionFailed):
		b.send(ctx, userID, "Назначать администраторов может только владелец бота.")
	case err != nil:
		b.appCtx.Logger.Error("appoint failed", "target", targetID, "error", err)
		b.send(ctx, userID, "Не получилось назначить администратора.")
	default:
		b.send(ctx, userID, fmt.Sprintf("Пользователь %d теперь администратор.", targetID))
	}
	return nil
}

func (b *Bot) handleDismiss(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	targetID, err := parseID(commandArgs(update.Message.Text))
	if err != nil {
		b.send(ctx, userID, "Использование: /dismiss <id>")
		return nil
	}
	switch err := b.admins.Dismiss(ctx.Context(), userID, targetID); {
	case errors.Is(err, domain.ErrPreconditionFailed):
		b.send(ctx, userID, "Снимать администраторов может только владелец бота.")
	case errors.Is(err, domain.ErrInvalidInput):
		b.send(ctx, userID, "Владельца бота снять нельзя.")
	case err != nil:
		b.appCtx.Logger.Error("dismiss failed", "target", targetID, "error", err)
		b.send(ctx, userID, "Не получилось снять администратора.")
	default:
		b.send(ctx, userID, fmt.Sprintf("Пользователь %d больше не администратор.", targetID))
	}
	return nil
}

func (b *Bot) handleBlock(ctx *th.Context, update telego.Update) error {
	return b.setBlocked(ctx, update, true)
}

func (b *Bot) handleUnblock(ctx *th.Context, update telego.Update) error {
	return b.setBlocked(ctx, update, false)
}

func (b *Bot) setBlocked(ctx *th.Context, update telego.Update, blocked bool) error {
	userID := update.Message.From.ID
	if !b.requireAdmin(ctx, userID) {
		return nil
	}
	usage := "/unblock <id>"
	if blocked {
		usage = "/block <id>"
	}
	targetID, err := parseID(commandArgs(update.Message.Text))
	if err != nil {
		b.send(ctx, userID, "Использование: "+usage)
		return nil
	}
	err = b.admins.SetBlocked(ctx.Context(), userID, targetID, blocked)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Такого пользователя нет.")
		return nil
	}
	if err != nil {
		b.appCtx.Logger.Error("moderation toggle failed", "target", targetID, "error", err)
		b.send(ctx, userID, "Не получилось изменить статус.")
		return nil
	}
	if blocked {
		b.send(ctx, userID, fmt.Sprintf("Пользователь %d заблокирован. 🚫", targetID))
	} else {
		b.send(ctx, userID, fmt.Sprintf("Пользователь %d разблокирован.", targetID))
	}
	return nil
}

// handleAdminMessage: /msg <id> <text>, or /msg <id> to dictate the text in
// the next message.
func (b *Bot) handleAdminMessage(ctx *th.Context, update telego.Update) error {
	userID := update.Message.From.ID
	if !b.requireAdmin(ctx, userID) {
		return nil
	}
	args := commandArgs(update.Message.Text)
	idStr, text, _ := strings.Cut(args, " ")
	targetID, err := parseID(idStr)
	if err != nil {
		b.send(ctx, userID, "Использование: /msg <id> <текст>")
		return nil
	}
	if strings.TrimSpace(text) == "" {
		sess := b.sessions.get(userID)
		sess.state = stateAwaitAdminMessage
		sess.targetID = targetID
		b.send(ctx, userID, fmt.Sprintf("Пришли текст для пользователя %d (или «%s»):", targetID, cancelWord))
		return nil
	}
	b.deliverAdminMessage(ctx, userID, targetID, strings.TrimSpace(text))
	return nil
}

func (b *Bot) finishAdminMessage(ctx *th.Context, userID int64, sess *session, text string) {
	targetID := sess.targetID
	b.sessions.reset(userID)
	if text == "" {
		b.send(ctx, userID, "Пустое сообщение отменено.")
		return
	}
	b.deliverAdminMessage(ctx, userID, targetID, text)
}

func (b *Bot) deliverAdminMessage(ctx *th.Context, userID, targetID int64, text string) {
	events, err := b.admins.Message(ctx.Context(), userID, targetID, text)
	if errors.Is(err, domain.ErrNotFound) {
		b.send(ctx, userID, "Такого пользователя нет.")
		return
	}
	if err != nil {
		b.appCtx.Logger.Error("admin message failed", "target", targetID, "error", err)
		b.send(ctx, userID, "Не получилось отправить сообщение.")
		return
	}
	b.dispatcher.Dispatch(ctx.Context(), events)
	b.send(ctx, userID, "Сообщение отправлено. ✉️")
}
