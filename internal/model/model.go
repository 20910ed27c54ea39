// Package model defines the domain types used across the application.
package model

import (
	"strconv"
	"time"
)

// Item is a single cached post fetched from a source.
type Item struct {
	Title     string
	Score     float64
	Content   string // link URL, or body text when the post has no link
	Sensitive bool
	Permalink string
	Source    string
}

// ChannelID identifies a delivery consumer (a chat).
type ChannelID int64

// String returns the decimal form used as the persisted key.
func (id ChannelID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseChannelID parses the decimal form produced by ChannelID.String.
func ParseChannelID(s string) (ChannelID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ChannelID(v), nil
}

// Channel is a registered delivery target.
type Channel struct {
	ID        ChannelID
	Name      string
	Sensitive bool
	LastSeen  time.Time
}

// ChannelDocument is the persisted form of a Channel. The key is kept as text
// and only validated when decoded.
type ChannelDocument struct {
	Channel   string
	Name      string
	Sensitive bool
	Time      int64
}

// Document encodes c for storage.
func (c Channel) Document() ChannelDocument {
	return ChannelDocument{
		Channel:   c.ID.String(),
		Name:      c.Name,
		Sensitive: c.Sensitive,
		Time:      c.LastSeen.Unix(),
	}
}

// Decode converts a stored document back into a Channel.
func (d ChannelDocument) Decode() (Channel, error) {
	id, err := ParseChannelID(d.Channel)
	if err != nil {
		return Channel{}, &DecodeError{Channel: d.Channel, Err: err}
	}
	return Channel{
		ID:        id,
		Name:      d.Name,
		Sensitive: d.Sensitive,
		LastSeen:  time.Unix(d.Time, 0).UTC(),
	}, nil
}

// DecodeError reports a stored channel document that could not be decoded.
type DecodeError struct {
	Channel string
	Err     error
}

func (e *DecodeError) Error() string {
	return "channel ID cannot be parsed as an integer: " + strconv.Quote(e.Channel)
}

func (e *DecodeError) Unwrap() error { return e.Err }
