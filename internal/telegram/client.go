package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API over HTTP. Every call carries the
// configured short timeout so a stalled gateway cannot pin a worker.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

func NewClient(token string, timeout time.Duration) *Client {
	return NewClientWithBase(defaultAPIBase, token, timeout)
}

// NewClientWithBase targets a non-default API host. Tests point this at a
// local httptest server.
func NewClientWithBase(apiBase, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		apiBase:    apiBase,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// envelope is the Bot API response shape shared by every method.
type envelope struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *responseParams `json:"parameters,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type responseParams struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp.Body, method, out)
}

func decodeEnvelope(r io.Reader, method string, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}

	if !env.OK {
		if env.ErrorCode == http.StatusTooManyRequests && env.Parameters != nil {
			return &FloodWaitError{RetryAfter: time.Duration(env.Parameters.RetryAfter) * time.Second}
		}
		return &APIError{Code: env.ErrorCode, Description: env.Description}
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// SendMessage sends HTML-formatted text, optionally with an inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *ReplyMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// ForwardMessage forwards a message and returns the ID of the new copy in
// the destination chat.
func (c *Client) ForwardMessage(ctx context.Context, toChat, fromChat, messageID int64) (int64, error) {
	var result struct {
		MessageID int64 `json:"message_id"`
	}
	err := c.call(ctx, "forwardMessage", map[string]any{
		"chat_id":      toChat,
		"from_chat_id": fromChat,
		"message_id":   messageID,
	}, &result)
	if err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// DeleteMessage retracts a previously sent or forwarded message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// GetUpdates long-polls for inbound updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int, allowedUpdates []string) ([]Update, error) {
	payload := map[string]any{
		"offset":  offset,
		"timeout": timeoutSec,
	}
	if len(allowedUpdates) > 0 {
		payload["allowed_updates"] = allowedUpdates
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// GetChatMemberStatus returns the membership status ("member", "left",
// "kicked", ...) of a user in a chat. The chat may be a numeric ID or an
// @username.
func (c *Client) GetChatMemberStatus(ctx context.Context, chat string, userID int64) (string, error) {
	var result struct {
		Status string `json:"status"`
	}
	err := c.call(ctx, "getChatMember", map[string]any{
		"chat_id": chat,
		"user_id": userID,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// SetWebhook points the Bot API at url for update delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	payload := map[string]any{"url": url}
	if secretToken != "" {
		payload["secret_token"] = secretToken
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

// SendDocument uploads a file to a chat. Used by the catalog backup worker.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling sendDocument: %w", err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp.Body, "sendDocument", nil)
}
