package domain

import "time"

type Origin string

const (
	OriginSlack   Origin = "slack"
	OriginDiscord Origin = "discord"
)

func (o Origin) Valid() bool {
	return o == OriginSlack || o == OriginDiscord
}

// Metadata keys written on tasks derived from mentions.
const (
	MetaIdempotencyKey = "idempotency_key"
	MetaAuthor         = "author"
	MetaOrigin         = "origin"
	MetaMessageID      = "message_id"
	MetaChannelID      = "channel_id"
	MetaPermalink      = "permalink"
)

// Mention is an already-validated chat event addressed to the bot.
type Mention struct {
	Origin    Origin    `json:"origin" validate:"required,oneof=slack discord"`
	RawText   string    `json:"raw_text" validate:"required"`
	Author    string    `json:"author" validate:"required"`
	MessageID string    `json:"message_id" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
	ChannelID string    `json:"channel_id,omitempty"`
	Permalink string    `json:"permalink,omitempty"`
}

// IdempotencyKey identifies the originating message across redeliveries.
func (m Mention) IdempotencyKey() string {
	return string(m.Origin) + ":" + m.MessageID
}
