package notify

import (
	"fmt"
	"strings"
	"time"

	"tanishuv-bot/internal/db"
	"tanishuv-bot/internal/domain"
)

// EventKind tags a notification produced by the services. Services return
// events from their transactions; the dispatcher delivers them after commit
// so a Telegram hiccup can never roll back persisted state.
type EventKind string

const (
	EventLikeReceived   EventKind = "like_received"
	EventMutualMatch    EventKind = "mutual_match"
	EventOperatorMatch  EventKind = "operator_match"
	EventPremiumGranted EventKind = "premium_granted"
	EventPremiumExpired EventKind = "premium_expired"
	EventExpiryWarning  EventKind = "expiry_warning"
	EventReportFiled    EventKind = "report_filed"
	EventAdminMessage   EventKind = "admin_message"
)

// Event is one pending notification. Subject is the profile the message is
// about (the liker, the match partner, the reported user) and may be nil for
// kinds that do not show a profile card.
type Event struct {
	Kind      EventKind
	Recipient int64
	Subject   *db.Profile
	Detail    string
	Expiry    time.Time
}

// FormatProfile renders a profile card caption. Shared by notifications and
// the browsing flow.
func FormatProfile(p *db.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %d", p.Name, p.Age)
	if p.Premium {
		b.WriteString(" ⭐")
	}
	fmt.Fprintf(&b, "\n📍 %s, %s", p.City, p.Country)
	if p.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Description)
	}
	return b.String()
}

func contactLine(p *db.Profile) string {
	if p != nil && p.Username != "" {
		return "@" + p.Username
	}
	if p != nil {
		return fmt.Sprintf("id %d", p.UserID)
	}
	return ""
}

// Render produces the user-facing message text. Returns showCard=true when
// the subject's photos should accompany the text.
func (e Event) Render() (text string, showCard bool) {
	switch e.Kind {
	case EventLikeReceived:
		// gender agreement follows the liker
		who := "Ты кому-то понравился!"
		if e.Subject != nil && e.Subject.Gender == domain.GenderFemale {
			return fmt.Sprintf("💌 Ты понравился девушке!\n\n%s", FormatProfile(e.Subject)), true
		}
		if e.Subject != nil {
			return fmt.Sprintf("💌 Ты понравилась парню!\n\n%s", FormatProfile(e.Subject)), true
		}
		return "💌 " + who, false
	case EventMutualMatch:
		return fmt.Sprintf("🎉 Это взаимно! Вы понравились друг другу.\n\n%s\n\nНапиши: %s",
			FormatProfile(e.Subject), contactLine(e.Subject)), true
	case EventOperatorMatch:
		return fmt.Sprintf("🤝 Новая пара: %s и %s", e.Detail, contactLine(e.Subject)), false
	case EventPremiumGranted:
		if e.Expiry.IsZero() {
			return "⭐ Тебе выдан премиум без ограничения срока!", false
		}
		return fmt.Sprintf("⭐ Тебе выдан премиум до %s!", e.Expiry.Format("02.01.2006 15:04")), false
	case EventPremiumExpired:
		return "😔 Срок премиума истёк. Пригласи друзей, чтобы продлить!", false
	case EventExpiryWarning:
		return fmt.Sprintf("⏳ Премиум закончится %s. Пригласи друзей, чтобы продлить!",
			e.Expiry.Format("02.01.2006 15:04")), false
	case EventReportFiled:
		return fmt.Sprintf("🚩 Новая жалоба на пользователя %s:\n%s", contactLine(e.Subject), e.Detail), true
	case EventAdminMessage:
		return "✉️ Сообщение от администрации:\n\n" + e.Detail, false
	}
	return e.Detail, false
}
