package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/delivery"
	"github.com/cinevault/api/internal/ingest"
	"github.com/cinevault/api/internal/search"
	"github.com/cinevault/api/internal/telegram"
)

const (
	privateSearchLimit = 8
	groupSearchLimit   = 4
	maxQueryLen        = 200
	maxButtonTextLen   = 64
)

var alnumRe = regexp.MustCompile(`[A-Za-z0-9]`)

// Gateway is the slice of the messaging gateway the dispatcher needs.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.ReplyMarkup) error
	GetChatMemberStatus(ctx context.Context, chat string, userID int64) (string, error)
}

type Config struct {
	// ChannelID and ChannelUsername identify the content channel; a post
	// matching either is routed to ingestion.
	ChannelID       int64
	ChannelUsername string

	WebsiteURL string

	// RequiredChannels gates delivery: a requester must be a member of
	// each before files are forwarded.
	RequiredChannels []string
}

// Dispatcher routes decoded updates: content-channel posts to the
// ingestion pipeline, everything else to interactive command handling.
type Dispatcher struct {
	cfg       Config
	gateway   Gateway
	pipeline  *ingest.Pipeline
	engine    *search.Engine
	repo      *catalog.Repository
	scheduler *delivery.Scheduler
}

func NewDispatcher(cfg Config, gateway Gateway, pipeline *ingest.Pipeline, engine *search.Engine, repo *catalog.Repository, scheduler *delivery.Scheduler) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		gateway:   gateway,
		pipeline:  pipeline,
		engine:    engine,
		repo:      repo,
		scheduler: scheduler,
	}
}

// HandleUpdate processes one inbound update. Failures are absorbed here;
// users only ever see a generic reply, never an internal error.
func (d *Dispatcher) HandleUpdate(ctx context.Context, u *telegram.Update) {
	msg := u.Post()
	if msg == nil {
		return
	}

	if d.isContentChannel(msg.Chat) {
		d.pipeline.Ingest(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	chatID := msg.Chat.ID
	userID := chatID
	if msg.From != nil {
		userID = msg.From.ID
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		d.handleStart(ctx, userID, chatID, text)
	case msg.Chat.Type == "private" && !strings.HasPrefix(text, "/"):
		d.quickSearch(ctx, chatID, text, privateSearchLimit, true)
	case (msg.Chat.Type == "group" || msg.Chat.Type == "supergroup") && !strings.HasPrefix(text, "/"):
		// Heuristic: short, searchable-looking group messages only.
		if len(text) < 120 && alnumRe.MatchString(text) {
			d.quickSearch(ctx, chatID, text, groupSearchLimit, false)
		}
	}
}

func (d *Dispatcher) isContentChannel(chat telegram.Chat) bool {
	if chat.Type != "channel" {
		return false
	}
	if d.cfg.ChannelID != 0 && chat.ID == d.cfg.ChannelID {
		return true
	}
	return d.cfg.ChannelUsername != "" && chat.Username == strings.TrimPrefix(d.cfg.ChannelUsername, "@")
}

func (d *Dispatcher) handleStart(ctx context.Context, userID, chatID int64, text string) {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		welcome := "👋 Welcome!"
		if d.cfg.WebsiteURL != "" {
			welcome = fmt.Sprintf("👋 Welcome!\nVisit website: %s", d.cfg.WebsiteURL)
		}
		d.reply(ctx, chatID, welcome, nil)
		return
	}

	slug := strings.TrimSpace(parts[1])

	if !d.memberOfRequiredChannels(ctx, userID) {
		markup := &telegram.ReplyMarkup{InlineKeyboard: [][]telegram.InlineButton{
			{{Text: "Join Channel", URL: "https://t.me/" + strings.TrimPrefix(d.cfg.RequiredChannels[0], "@")}},
			{{Text: "I've Joined", CallbackData: "joined:" + slug}},
		}}
		d.reply(ctx, chatID, "🔒 Please join required channels to access files.", markup)
		return
	}

	item, err := d.repo.GetBySlug(ctx, slug)
	if err != nil {
		if d.cfg.WebsiteURL != "" {
			d.reply(ctx, chatID, fmt.Sprintf("You can view this title on the website: %s/movie/%s", d.cfg.WebsiteURL, slug), nil)
		} else {
			d.reply(ctx, chatID, "❌ File not available.", nil)
		}
		return
	}

	if !d.scheduler.Deliver(ctx, chatID, item) {
		d.reply(ctx, chatID, "❌ Could not send the file right now, please try again later.", nil)
	}
}

// memberOfRequiredChannels checks the join gate. A gateway failure counts
// as not joined; the user just gets prompted again.
func (d *Dispatcher) memberOfRequiredChannels(ctx context.Context, userID int64) bool {
	for _, ch := range d.cfg.RequiredChannels {
		status, err := d.gateway.GetChatMemberStatus(ctx, ch, userID)
		if err != nil {
			slog.Warn("membership check failed", "channel", ch, "user", userID, "error", err)
			return false
		}
		if status == "left" || status == "kicked" {
			return false
		}
	}
	return true
}

// quickSearch replies with an inline keyboard of website links for the
// top matches. When notifyEmpty is false a miss stays silent (group chats
// should not be spammed with "not found").
func (d *Dispatcher) quickSearch(ctx context.Context, chatID int64, query string, limit int, notifyEmpty bool) {
	query = catalog.TruncateRunes(query, maxQueryLen)

	results := d.engine.Search(ctx, query, limit, "")
	if len(results) == 0 {
		if notifyEmpty {
			reply := "❌ Movie not found."
			if d.cfg.WebsiteURL != "" {
				reply = "❌ Movie not found. Try the website:\n" + d.cfg.WebsiteURL
			}
			d.reply(ctx, chatID, reply, nil)
		}
		return
	}

	rows := make([][]telegram.InlineButton, 0, len(results))
	for _, item := range results {
		label := item.Title
		if item.Year != nil {
			label = fmt.Sprintf("%s (%d)", item.Title, *item.Year)
		}
		label = catalog.TruncateRunes(label, maxButtonTextLen)
		rows = append(rows, []telegram.InlineButton{{
			Text: label,
			URL:  fmt.Sprintf("%s/movie/%s", d.cfg.WebsiteURL, item.Slug),
		}})
	}

	text := fmt.Sprintf("🔍 Results for: <b>%s</b>\n\nClick to open on website:", html.EscapeString(query))
	d.reply(ctx, chatID, text, &telegram.ReplyMarkup{InlineKeyboard: rows})
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string, markup *telegram.ReplyMarkup) {
	if err := d.gateway.SendMessage(ctx, chatID, text, markup); err != nil {
		slog.Warn("reply failed", "chat", chatID, "error", err)
	}
}
