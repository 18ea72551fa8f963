package models

import "time"

// Channel holds the fields every channel record carries.
type Channel struct {
	Name         string    `json:"name"`
	FriendlyName string    `json:"friendly_name"`
	Timestamp    time.Time `json:"timestamp"`
}

func newChannel(name, friendlyName string) Channel {
	if friendlyName == "" {
		friendlyName = name
	}
	return Channel{Name: name, FriendlyName: friendlyName}
}

// ChannelName returns the protocol name used for lookups.
func (c *Channel) ChannelName() string { return c.Name }

func (c *Channel) touch(now time.Time) { c.Timestamp = now }
