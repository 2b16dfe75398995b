package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"tanishuv-bot/internal/domain"
)

// PhotoList stores an ordered list of Telegram photo file ids as a JSON
// array, matching the legacy column layout.
type PhotoList []string

func (p PhotoList) Value() (driver.Value, error) {
	if p == nil {
		p = PhotoList{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal photos: %w", err)
	}
	return string(b), nil
}

func (p *PhotoList) Scan(src any) error {
	if src == nil {
		*p = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported photos column type %T", src)
	}
	if len(b) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(b, p)
}

// Profile is one user record, keyed by the Telegram user id.
//
// Premium state invariant: once PremiumExpiry is in the past the row is
// lazily normalized to Premium=false, PremiumExpiry=nil on the next read
// (entitlement.Status). A premium row with a nil expiry is a permanent grant.
type Profile struct {
	UserID        int64         `gorm:"primaryKey"`
	Username      string        `gorm:"size:64"`
	Name          string        `gorm:"size:128;not null"`
	Photos        PhotoList     `gorm:"type:text"`
	Age           int           `gorm:"not null"`
	Gender        domain.Gender `gorm:"size:16;not null;index"`
	Description   string        `gorm:"size:500"`
	SeekingGender domain.Gender `gorm:"size:16;not null;index"`
	Country       string        `gorm:"size:32;index"`
	City          string        `gorm:"size:64;index"`
	Blocked       bool          `gorm:"not null;default:false;index"`
	Premium       bool          `gorm:"not null;default:false;index"`
	PremiumExpiry *time.Time
	InvitedCount  int        `gorm:"not null;default:0"`
	LastBoost     *time.Time `gorm:"index"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string { return "users" }

// Like is a directed like edge. The timestamp drives the rolling 24h quota
// window; dislike and skip edges do not need one.
//
// Composite PK (FromUser, ToUser) makes re-issuing the same like a no-op.
type Like struct {
	FromUser  int64     `gorm:"primaryKey;index:idx_likes_from_created,priority:1"`
	ToUser    int64     `gorm:"primaryKey;index:idx_likes_to"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_likes_from_created,priority:2"`
}

func (Like) TableName() string { return "likes" }

type Dislike struct {
	FromUser int64 `gorm:"primaryKey"`
	ToUser   int64 `gorm:"primaryKey;index:idx_dislikes_to"`
}

func (Dislike) TableName() string { return "dislikes" }

type Skip struct {
	FromUser int64 `gorm:"primaryKey"`
	ToUser   int64 `gorm:"primaryKey;index:idx_skips_to"`
}

func (Skip) TableName() string { return "skips" }

// Invitation records a successful referral. The composite PK makes the
// (inviter, invited) pair unique, so an invite link followed twice counts
// once. invited_count on the inviter's profile is always recomputed as
// COUNT(invitations WHERE inviter_id=...), never incremented blindly.
type Invitation struct {
	InviterID int64     `gorm:"primaryKey"`
	InvitedID int64     `gorm:"primaryKey;index:idx_invitations_invited"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Invitation) TableName() string { return "invitations" }

// AuditLog is an append-only structured audit event. Kind + TargetID + Detail
// replace the legacy delimited action string, so report listings never have
// to split text.
type AuditLog struct {
	LogID     uint64           `gorm:"primaryKey;autoIncrement"`
	UserID    int64            `gorm:"not null;index"`
	Kind      domain.AuditKind `gorm:"size:32;not null;index"`
	TargetID  int64            `gorm:"index"`
	Detail    string           `gorm:"size:255"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index"`
}

func (AuditLog) TableName() string { return "logs" }

// Admin is the persisted admin set. The super admin comes from config, is
// never stored here and cannot be removed.
type Admin struct {
	UserID int64 `gorm:"primaryKey"`
}

func (Admin) TableName() string { return "admins" }
