package models

import "time"

// WarningState is the active warning level of a member. One per (guild, user).
type WarningState struct {
	TenantID  string    `bson:"guild_id" json:"guild_id"`
	SubjectID string    `bson:"user_id" json:"user_id"`
	Level     int       `bson:"level" json:"level"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// WarningHistoryEntry representa una advertencia emitida. Nunca se modifica.
type WarningHistoryEntry struct {
	ID          string    `bson:"_id" json:"id"`
	TenantID    string    `bson:"guild_id" json:"guild_id"`
	SubjectID   string    `bson:"user_id" json:"user_id"`
	Level       int       `bson:"level" json:"level"`
	Reason      string    `bson:"reason" json:"reason"`
	ModeratorID string    `bson:"moderator_id" json:"moderator_id"`
	IssuedAt    time.Time `bson:"issued_at" json:"issued_at"`
}

// WarnSettings binds warning levels to roles for a guild.
type WarnSettings struct {
	TenantID   string `bson:"_id" json:"guild_id"`
	FirstRole  string `bson:"first_warn_role" json:"first_warn_role"`
	SecondRole string `bson:"second_warn_role" json:"second_warn_role"`
	LastRole   string `bson:"last_warn_role" json:"last_warn_role"`
	WarnerRole string `bson:"warner_role,omitempty" json:"warner_role,omitempty"`
	JailRole   string `bson:"jail_role,omitempty" json:"jail_role,omitempty"`
	LogSink    string `bson:"logs_channel,omitempty" json:"logs_channel,omitempty"`
}

// RoleForLevel returns the role bound to a warning level, or "" when unset.
func (s *WarnSettings) RoleForLevel(level int) string {
	if s == nil {
		return ""
	}
	switch level {
	case 1:
		return s.FirstRole
	case 2:
		return s.SecondRole
	case 3:
		return s.LastRole
	}
	return ""
}
