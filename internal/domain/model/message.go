package model

import (
	"sort"
	"time"
)

// ChannelMessage is a post observed in a source channel.
// Seq is the channel-scoped message id assigned by Telegram.
type ChannelMessage struct {
	Seq      int64     `json:"seq"`
	ChatID   int64     `json:"chat_id"`
	Channel  string    `json:"channel"`
	PostedAt time.Time `json:"posted_at"`
}

// SortBySeq orders messages ascending by sequence number, in place.
func SortBySeq(msgs []ChannelMessage) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Seq < msgs[j].Seq })
}

// Cursor is the last sequence number already forwarded for a channel.
type Cursor struct {
	Channel string `json:"channel"`
	LastSeq int64  `json:"last_seq"`
}

// MemberRole mirrors the status field of a Telegram chat member.
type MemberRole string

const (
	RoleCreator       MemberRole = "creator"
	RoleAdministrator MemberRole = "administrator"
	RoleMember        MemberRole = "member"
	RoleRestricted    MemberRole = "restricted"
	RoleLeft          MemberRole = "left"
	RoleKicked        MemberRole = "kicked"
)

// IsElevated reports whether the role may change the group's relay settings.
func (r MemberRole) IsElevated() bool {
	return r == RoleCreator || r == RoleAdministrator
}

// IsGone reports whether the member is no longer in the chat.
func (r MemberRole) IsGone() bool {
	return r == RoleLeft || r == RoleKicked
}
