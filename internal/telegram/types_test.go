package telegram

import (
	"encoding/json"
	"testing"
)

func TestAttachment_Priority(t *testing.T) {
	size := int64(100)
	msg := &Message{
		Document: &File{FileID: "doc", FileUniqueID: "u-doc"},
		Video:    &File{FileID: "vid", FileUniqueID: "u-vid"},
		Photo:    []PhotoSize{{FileID: "ph", FileUniqueID: "u-ph", FileSize: &size}},
	}

	att, ok := msg.Attachment()
	if !ok {
		t.Fatal("Attachment() ok = false, want true")
	}
	if att.Kind != KindDocument || att.FileID != "doc" {
		t.Fatalf("Attachment() = %+v, want the document", att)
	}
	if att.ContentKey != "u-doc" {
		t.Fatalf("ContentKey = %q, want file_unique_id", att.ContentKey)
	}
}

func TestAttachment_PhotoPicksLargest(t *testing.T) {
	msg := &Message{
		Photo: []PhotoSize{
			{FileID: "small", FileUniqueID: "u-small", Width: 90, Height: 90},
			{FileID: "large", FileUniqueID: "u-large", Width: 800, Height: 800},
		},
	}

	att, ok := msg.Attachment()
	if !ok {
		t.Fatal("Attachment() ok = false, want true")
	}
	if att.Kind != KindPhoto || att.FileID != "large" {
		t.Fatalf("Attachment() = %+v, want the largest photo size", att)
	}
}

func TestAttachment_TextOnly(t *testing.T) {
	msg := &Message{Text: "no media here"}

	if _, ok := msg.Attachment(); ok {
		t.Fatal("Attachment() ok = true for text-only message, want false")
	}
}

func TestUpdate_Post(t *testing.T) {
	channel := &Message{MessageID: 1}
	private := &Message{MessageID: 2}

	u := &Update{ChannelPost: channel}
	if u.Post() != channel {
		t.Fatal("Post() should prefer the channel post")
	}

	u = &Update{Message: private}
	if u.Post() != private {
		t.Fatal("Post() should fall back to the direct message")
	}
}

func TestUpdate_DecodeChannelPost(t *testing.T) {
	raw := `{
		"update_id": 7,
		"channel_post": {
			"message_id": 99,
			"chat": {"id": -100100, "type": "channel", "title": "Releases"},
			"caption": "Heat 1995",
			"document": {"file_id": "f1", "file_unique_id": "u1", "file_name": "Heat.1995.mkv", "file_size": 1000, "mime_type": "video/x-matroska"}
		}
	}`

	var u Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if u.UpdateID != 7 {
		t.Fatalf("UpdateID = %d, want 7", u.UpdateID)
	}
	if u.ChannelPost == nil || u.ChannelPost.Document == nil {
		t.Fatal("channel post document not decoded")
	}
	if u.ChannelPost.Document.FileUniqueID != "u1" {
		t.Fatalf("FileUniqueID = %q, want u1", u.ChannelPost.Document.FileUniqueID)
	}
	if u.ChannelPost.Document.FileSize == nil || *u.ChannelPost.Document.FileSize != 1000 {
		t.Fatal("FileSize not decoded")
	}
}
