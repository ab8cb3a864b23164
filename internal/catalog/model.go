package catalog

import "time"

// Item is one media file known to the catalog. Items are append-only:
// created on first sighting of a content key and never mutated.
type Item struct {
	// ContentKey is the gateway-issued identifier unique to the underlying
	// file (Telegram file_unique_id). It is the sole dedup boundary.
	ContentKey string    `json:"content_key"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Year       *int      `json:"year,omitempty"`
	Caption    string    `json:"caption"`
	FileID     string    `json:"file_id"`
	FileSize   *int64    `json:"file_size,omitempty"`
	MimeType   *string   `json:"mime_type,omitempty"`
	ChannelID  int64     `json:"channel_id"`
	MessageID  int64     `json:"message_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// SourceLocation returns the (channel, message) coordinate needed to
// re-forward the item's file.
func (i *Item) SourceLocation() (chatID, messageID int64) {
	return i.ChannelID, i.MessageID
}
