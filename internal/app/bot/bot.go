package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"

	"github.com/kotche/notes/internal/model"
	"github.com/kotche/notes/internal/reminder"
	"github.com/kotche/notes/internal/service/link"
	"github.com/kotche/notes/internal/service/notes"
	"github.com/kotche/notes/internal/service/settings"
)

const (
	longProcessTimeout = 2 * time.Second
	dateTimeLayout     = "2006-01-02 15:04"
)

const helpMessage = "Available commands:\n" +
	"/start {code} - link this chat to your notes account\n" +
	"/new {text} [| YYYY-MM-DD HH:MM] - create a note, optionally with a reminder\n" +
	"/new {text} | HH:MM - reminder today, or tomorrow if the time has passed\n" +
	"/list - list your notes\n" +
	"/get {id} - show a note\n" +
	"/delete {id} - delete a note\n" +
	"/help - show this message"

const notLinkedMessage = "This chat is not linked yet. Create a link code in the app and send /start {code}."

// replyError is a user mistake; its text goes back to the chat as is.
type replyError string

func (e replyError) Error() string {
	return string(e)
}

type Bot struct {
	bot      *telebot.Bot
	notes    notes.Service
	settings settings.Service
	links    link.Service
	loc      *time.Location
	log      *zap.Logger
	now      func() time.Time
}

func New(bot *telebot.Bot, notes notes.Service, settings settings.Service, links link.Service, loc *time.Location, log *zap.Logger) *Bot {
	if loc == nil {
		loc = time.UTC
	}
	return &Bot{
		bot:      bot,
		notes:    notes,
		settings: settings,
		links:    links,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// Start registers the command handlers and polls until Stop.
func (b *Bot) Start() {
	b.bot.Handle("/help", func(c telebot.Context) error {
		return c.Send(helpMessage)
	})
	b.bot.Handle("/start", b.handle(func(ctx context.Context, c telebot.Context) string {
		return b.link(ctx, c.Chat().ID, c.Message().Payload)
	}))
	b.bot.Handle("/new", b.handle(func(ctx context.Context, c telebot.Context) string {
		return b.create(ctx, c.Chat().ID, c.Message().Payload)
	}))
	b.bot.Handle("/list", b.handle(func(ctx context.Context, c telebot.Context) string {
		return b.list(ctx, c.Chat().ID)
	}))
	b.bot.Handle("/get", b.handle(func(ctx context.Context, c telebot.Context) string {
		return b.get(ctx, c.Chat().ID, c.Message().Payload)
	}))
	b.bot.Handle("/delete", b.handle(func(ctx context.Context, c telebot.Context) string {
		return b.remove(ctx, c.Chat().ID, c.Message().Payload)
	}))

	b.log.Info("bot started", zap.String("username", b.bot.Me.Username))
	b.bot.Start()
}

func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) handle(fn func(ctx context.Context, c telebot.Context) string) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), longProcessTimeout)
		defer cancel()
		return c.Send(fn(ctx, c))
	}
}

func (b *Bot) link(ctx context.Context, chatID int64, code string) string {
	if strings.TrimSpace(code) == "" {
		return "Welcome! " + notLinkedMessage
	}

	userID, err := b.links.Redeem(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrLinkCodeNotFound) {
			return "This link code is unknown or has expired. Create a new one in the app."
		}
		return b.failure(ctx, "redeem link code", chatID, err)
	}

	if err = b.settings.LinkTelegram(ctx, userID, chatID); err != nil {
		return b.failure(ctx, "link chat", chatID, err)
	}

	b.log.Info("telegram chat linked", zap.Int64("chat_id", chatID), zap.Stringer("user_id", userID))
	return "Chat linked. Reminders will be sent here.\n\n" + helpMessage
}

func (b *Bot) create(ctx context.Context, chatID int64, payload string) string {
	userID, reply := b.userFor(ctx, chatID)
	if reply != "" {
		return reply
	}

	content, at, err := parseNew(payload, b.now().In(b.loc))
	if err != nil {
		return err.Error()
	}

	note, err := b.notes.Create(ctx, userID, content, at)
	if err != nil {
		if errors.Is(err, model.ErrEmptyContent) {
			return "Note text is empty. Usage: /new {text} [| YYYY-MM-DD HH:MM]"
		}
		return b.failure(ctx, "create note", chatID, err)
	}

	if note.NotificationTime == nil {
		return fmt.Sprintf("Saved note \"%s\", id: %d.", note.Content, note.ID)
	}
	return fmt.Sprintf("Saved note \"%s\", id: %d. Reminder %s (in %s).",
		note.Content, note.ID, note.NotificationTime.In(b.loc).Format(dateTimeLayout),
		reminder.Countdown(*note.NotificationTime, b.now()))
}

func (b *Bot) list(ctx context.Context, chatID int64) string {
	userID, reply := b.userFor(ctx, chatID)
	if reply != "" {
		return reply
	}

	list, err := b.notes.List(ctx, userID)
	if err != nil {
		return b.failure(ctx, "list notes", chatID, err)
	}

	if len(list) == 0 {
		return "No notes yet"
	}

	now := b.now()
	var response strings.Builder
	response.WriteString("Your notes:\n")
	for i, note := range list {
		response.WriteString(fmt.Sprintf("%d. %s (id %d%s)\n", i+1, note.Content, note.ID, b.reminderStatus(note, now)))
	}
	return response.String()
}

func (b *Bot) get(ctx context.Context, chatID int64, arg string) string {
	userID, reply := b.userFor(ctx, chatID)
	if reply != "" {
		return reply
	}

	noteID, err := parseNoteID(arg)
	if err != nil {
		return err.Error()
	}

	note, err := b.notes.Get(ctx, noteID, userID)
	if err != nil {
		if errors.Is(err, model.ErrNoteNotFound) {
			return fmt.Sprintf("Note '%d' not found", noteID)
		}
		return b.failure(ctx, "get note", chatID, err)
	}

	return fmt.Sprintf("%s (id %d, created: %s%s)",
		note.Content, note.ID, note.CreatedAt.In(b.loc).Format(dateTimeLayout), b.reminderStatus(*note, b.now()))
}

func (b *Bot) remove(ctx context.Context, chatID int64, arg string) string {
	userID, reply := b.userFor(ctx, chatID)
	if reply != "" {
		return reply
	}

	noteID, err := parseNoteID(arg)
	if err != nil {
		return err.Error()
	}

	if err = b.notes.Delete(ctx, noteID, userID); err != nil {
		if errors.Is(err, model.ErrNoteNotFound) {
			return fmt.Sprintf("Note '%d' not found", noteID)
		}
		return b.failure(ctx, "delete note", chatID, err)
	}
	return "Note deleted"
}

func (b *Bot) reminderStatus(note model.Note, now time.Time) string {
	switch {
	case note.NotificationTime == nil:
		return ""
	case note.NotificationSent:
		return fmt.Sprintf(", reminded %s", note.NotificationTime.In(b.loc).Format(dateTimeLayout))
	default:
		return fmt.Sprintf(", reminder %s, %s", note.NotificationTime.In(b.loc).Format(dateTimeLayout), reminder.Countdown(*note.NotificationTime, now))
	}
}

// userFor resolves the linked user, or returns the reply to send instead.
func (b *Bot) userFor(ctx context.Context, chatID int64) (model.UserID, string) {
	userID, err := b.settings.UserByChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			return userID, notLinkedMessage
		}
		return userID, b.failure(ctx, "resolve chat", chatID, err)
	}
	return userID, ""
}

func (b *Bot) failure(ctx context.Context, op string, chatID int64, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		b.log.Warn("context deadline exceeded", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))
		return "The operation took too long. Please try again later."
	}
	b.log.Error("bot command failed", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))
	return "Something went wrong. Please try again later."
}

func parseNoteID(arg string) (model.NoteID, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, replyError("Note id is missing!")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, replyError(fmt.Sprintf("Note id '%s' is not a number!", arg))
	}
	return model.NoteID(id), nil
}

// parseNew splits "/new" input into text and an optional reminder time in
// now's location. A bare HH or HH:MM means the next occurrence of that time.
func parseNew(payload string, now time.Time) (string, *time.Time, error) {
	content, when, found := cutLast(payload, "|")
	content = strings.TrimSpace(content)
	if !found {
		return content, nil, nil
	}

	when = strings.TrimSpace(when)
	if when == "" {
		return content, nil, nil
	}

	if t, err := time.ParseInLocation(dateTimeLayout, when, now.Location()); err == nil {
		return content, &t, nil
	}

	clock, ok := parseClock(when)
	if !ok {
		return "", nil, replyError(fmt.Sprintf("Cannot read reminder time '%s'. Use YYYY-MM-DD HH:MM, HH:MM or HH.", when))
	}

	t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return content, &t, nil
}

func parseClock(input string) (time.Time, bool) {
	if t, err := time.Parse("15:04", input); err == nil {
		return t, true
	}
	if t, err := time.Parse("15", input); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
