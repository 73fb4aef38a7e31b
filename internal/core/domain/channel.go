package domain

import (
	"fmt"
	"strings"
)

// Channel is a named broadcast scope. Channels exist only as index keys;
// they are derived from a connection's identity and never created directly.
type Channel string

const (
	ChannelAdmin    Channel = "admin"
	ChannelPartners Channel = "partners"

	partnerPrefix = "partner:"
)

// PartnerChannel returns the private channel of a single partner.
func PartnerChannel(partnerID string) Channel {
	return Channel(partnerPrefix + partnerID)
}

// PartnerID returns the partner id of a partner:<id> channel.
func (c Channel) PartnerID() (string, bool) {
	id, ok := strings.CutPrefix(string(c), partnerPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Type collapses per-partner channels into one label, for metrics.
func (c Channel) Type() string {
	if _, ok := c.PartnerID(); ok {
		return "partner"
	}
	return string(c)
}

// ParseChannel validates a channel name coming from outside the process.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	switch c {
	case ChannelAdmin, ChannelPartners:
		return c, nil
	}
	if _, ok := c.PartnerID(); ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown channel %q", ErrMalformedEvent, s)
}
