package domain

// Gender of a profile and of the profiles a user is looking for.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the two supported values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Action is a decision a user takes on a candidate profile.
type Action string

const (
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
	ActionSkip    Action = "skip"
)

func (a Action) Valid() bool {
	switch a {
	case ActionLike, ActionDislike, ActionSkip:
		return true
	}
	return false
}

// Outcome is the result of applying an action, consumable by the transport
// layer to decide what to show next.
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomeQuotaExceeded     Outcome = "quota_exceeded"
	OutcomeActorBlocked      Outcome = "actor_blocked"
	OutcomeTargetBlocked     Outcome = "target_blocked"
	OutcomeTargetUnavailable Outcome = "target_unavailable"
)

// AuditKind tags a structured audit event. Reports carry the free-text reason
// in the event's Detail field instead of being packed into a delimited string.
type AuditKind string

const (
	AuditProfileCreated AuditKind = "profile_created"
	AuditProfileEdited  AuditKind = "profile_edited"
	AuditLiked          AuditKind = "liked"
	AuditDisliked       AuditKind = "disliked"
	AuditSkipped        AuditKind = "skipped"
	AuditReported       AuditKind = "reported"
	AuditBlocked        AuditKind = "blocked"
	AuditUnblocked      AuditKind = "unblocked"
	AuditPremiumGranted AuditKind = "premium_granted"
	AuditPremiumRevoked AuditKind = "premium_revoked"
	AuditAdminMessage   AuditKind = "admin_message"
	AuditAdminAppointed AuditKind = "admin_appointed"
	AuditAdminRemoved   AuditKind = "admin_removed"
)

// MaxDailyLikes is the like cap for non-premium users over a rolling 24 hours.
const MaxDailyLikes = 30

// ReferralThreshold is the invited-friends count at which a referral premium
// grant fires. The grant re-fires on every invitation at or past the
// threshold, extending premium by ReferralGrantHours each time.
const (
	ReferralThreshold   = 5
	ReferralGrantHours  = 24
	MaxProfilePhotos    = 10
	MaxDescriptionChars = 500
)
