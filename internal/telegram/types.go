package telegram

// Update is a single inbound event from the Bot API, decoded once at the
// boundary. Exactly one of Message or ChannelPost is set.
type Update struct {
	UpdateID    int64    `json:"update_id"`
	Message     *Message `json:"message,omitempty"`
	ChannelPost *Message `json:"channel_post,omitempty"`
}

// Post returns whichever message payload the update carries.
func (u *Update) Post() *Message {
	if u.ChannelPost != nil {
		return u.ChannelPost
	}
	return u.Message
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"` // "private", "group", "supergroup", "channel"
	Username string `json:"username,omitempty"`
	Title    string `json:"title,omitempty"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from,omitempty"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`

	Document  *File       `json:"document,omitempty"`
	Video     *File       `json:"video,omitempty"`
	Animation *File       `json:"animation,omitempty"`
	Audio     *File       `json:"audio,omitempty"`
	Voice     *File       `json:"voice,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

type File struct {
	FileID       string  `json:"file_id"`
	FileUniqueID string  `json:"file_unique_id"`
	FileName     string  `json:"file_name,omitempty"`
	FileSize     *int64  `json:"file_size,omitempty"`
	MimeType     *string `json:"mime_type,omitempty"`
}

type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     *int64 `json:"file_size,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// AttachmentKind tags the media type a message carries.
type AttachmentKind string

const (
	KindDocument  AttachmentKind = "document"
	KindVideo     AttachmentKind = "video"
	KindAnimation AttachmentKind = "animation"
	KindAudio     AttachmentKind = "audio"
	KindVoice     AttachmentKind = "voice"
	KindPhoto     AttachmentKind = "photo"
)

// Attachment is the primary media file of a message.
type Attachment struct {
	Kind       AttachmentKind
	FileID     string
	ContentKey string // Telegram file_unique_id, stable across forwards
	FileName   string
	FileSize   *int64
	MimeType   *string
}

// Attachment extracts the first present media attachment following a fixed
// priority: document, video, animation, audio, voice, photo. A message is
// assumed to carry at most one primary attachment.
func (m *Message) Attachment() (Attachment, bool) {
	pick := func(kind AttachmentKind, f *File) (Attachment, bool) {
		return Attachment{
			Kind:       kind,
			FileID:     f.FileID,
			ContentKey: f.FileUniqueID,
			FileName:   f.FileName,
			FileSize:   f.FileSize,
			MimeType:   f.MimeType,
		}, true
	}

	switch {
	case m.Document != nil:
		return pick(KindDocument, m.Document)
	case m.Video != nil:
		return pick(KindVideo, m.Video)
	case m.Animation != nil:
		return pick(KindAnimation, m.Animation)
	case m.Audio != nil:
		return pick(KindAudio, m.Audio)
	case m.Voice != nil:
		return pick(KindVoice, m.Voice)
	case len(m.Photo) > 0:
		// Photo sizes arrive smallest first; keep the largest variant.
		p := m.Photo[len(m.Photo)-1]
		return Attachment{
			Kind:       KindPhoto,
			FileID:     p.FileID,
			ContentKey: p.FileUniqueID,
			FileSize:   p.FileSize,
		}, true
	}
	return Attachment{}, false
}

// ReplyMarkup is an inline keyboard attached to an outbound message.
type ReplyMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type InlineButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}
