package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"telegram-channel-relay/internal/domain"
)

// ChannelPrefix is the marker Telegram puts in front of public chat names.
const ChannelPrefix = "@"

var channelNameRe = regexp.MustCompile(`^[A-Za-z0-9_]{5,32}$`)

// ChannelBinding relays the posts of Channel into the group chat GroupID.
// A group has at most one binding.
type ChannelBinding struct {
	GroupID int64     `json:"group_id"`
	Channel string    `json:"channel"`
	BoundAt time.Time `json:"bound_at"`
}

// NewChannelBinding validates the channel name and builds a binding.
func NewChannelBinding(groupID int64, channel string) (*ChannelBinding, error) {
	if groupID == 0 {
		return nil, fmt.Errorf("%w: group id is required", domain.ErrInvalidArgument)
	}
	if err := ValidateChannelName(channel); err != nil {
		return nil, err
	}
	return &ChannelBinding{
		GroupID: groupID,
		Channel: NormalizeChannelName(channel),
		BoundAt: time.Now().UTC(),
	}, nil
}

// ValidateChannelName checks a bare channel name. The name must not carry the @ marker.
func ValidateChannelName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", domain.ErrInvalidChannelName)
	case strings.HasPrefix(name, ChannelPrefix):
		return fmt.Errorf("%w: %q carries the %s prefix", domain.ErrInvalidChannelName, name, ChannelPrefix)
	case !channelNameRe.MatchString(name):
		return fmt.Errorf("%w: %q", domain.ErrInvalidChannelName, name)
	}
	return nil
}

// ParseChannelRef turns a command argument of the form "@name" into a bare channel name.
func ParseChannelRef(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, ChannelPrefix) {
		return "", fmt.Errorf("%w: %q is missing the %s prefix", domain.ErrInvalidChannelName, arg, ChannelPrefix)
	}
	name := strings.TrimPrefix(arg, ChannelPrefix)
	if err := ValidateChannelName(name); err != nil {
		return "", err
	}
	return NormalizeChannelName(name), nil
}

// NormalizeChannelName lower-cases a name; Telegram usernames are case-insensitive.
func NormalizeChannelName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ChannelPrefix))
}
