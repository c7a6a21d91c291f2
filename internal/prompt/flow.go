package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/imagebot/core/logger"
	"github.com/m3rciful/imagebot/core/telegram"
	"github.com/m3rciful/imagebot/core/telegram/format"
	"github.com/m3rciful/imagebot/core/telegram/keyboard"
	"github.com/m3rciful/imagebot/internal/imagegen"
	"github.com/m3rciful/imagebot/internal/users"
)

// CancelCallback is the callback key of the inline cancel button.
const CancelCallback = "prompt_cancel"

// Generator renders images.
type Generator interface {
	IsAvailable() bool
	Generate(ctx context.Context, req imagegen.Request) (*imagegen.Image, error)
}

// PreferenceReader reads a user's image settings.
type PreferenceReader interface {
	Preferences(ctx context.Context, tgID int64) (users.Preferences, error)
}

// Messenger sends and edits messages by chat and message id.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) (int, error)
	EditText(ctx context.Context, chatID int64, msgID int, text string, opts *tele.SendOptions) error
	Delete(ctx context.Context, chatID int64, msgID int) error
	SendPhoto(ctx context.Context, chatID int64, p telegram.Photo, caption string, opts *tele.SendOptions) (int, error)
}

// Flow drives the prompt conversation.
type Flow struct {
	tracker *Tracker
	gen     Generator
	prefs   PreferenceReader
	msg     Messenger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewFlow wires a Flow. A nil tracker gets an in-memory one.
func NewFlow(tracker *Tracker, gen Generator, prefs PreferenceReader, msg Messenger) *Flow {
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Flow{tracker: tracker, gen: gen, prefs: prefs, msg: msg}
}

// Tracker exposes the state tracker, for the expiry job.
func (f *Flow) Tracker() *Tracker {
	return f.tracker
}

// Initiate handles /prompt: it arms the user and shows the current settings,
// or explains that generation is not configured.
func (f *Flow) Initiate(ctx context.Context, userID, chatID int64) error {
	if !f.gen.IsAvailable() {
		logger.Info(ctx, logger.CompPrompt, "prompt.initiate", slog.String("outcome", "unavailable"))
		_, err := f.msg.SendText(ctx, chatID, textUnavailable, nil)
		return err
	}

	f.tracker.BeginWaiting(userID)

	prefs, err := f.prefs.Preferences(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logger.CompPrompt, "prompt.preferences", logger.Err(err))
		prefs = users.DefaultPreferences()
	}
	text := fmt.Sprintf(initiateTemplate, prefs.AspectRatio, prefs.ImageSize, imagegen.ModelName(prefs.Model))
	_, err = f.msg.SendText(ctx, chatID, text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: keyboard.SingleCancelMarkup(CancelCallback),
	})
	logger.Info(ctx, logger.CompPrompt, "prompt.initiate", slog.String("outcome", logger.Status(err)))
	return err
}

// Capture offers free text to the flow. It reports whether the text was taken
// as a prompt; text starting with "/" never is, and neither is anything after
// Close. Generation continues in the background after Capture returns; Wait
// blocks until it is done.
func (f *Flow) Capture(ctx context.Context, userID, chatID int64, text string) (bool, error) {
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return false, nil
	}
	if !f.enter() {
		logger.Debug(ctx, logger.CompPrompt, "prompt.skip", slog.String("reason", "closed"))
		return false, nil
	}
	spawned := false
	defer func() {
		if !spawned {
			f.wg.Done()
		}
	}()

	if !f.tracker.ConsumeIfWaiting(userID) {
		logger.Debug(ctx, logger.CompPrompt, "prompt.skip", slog.String("reason", "not_waiting"))
		return false, nil
	}

	prompt := strings.TrimSpace(text)
	if prompt == "" {
		logger.Info(ctx, logger.CompPrompt, "prompt.capture", slog.String("outcome", "fail"), slog.String("reason", "empty"))
		_, err := f.msg.SendText(ctx, chatID, textInvalidPrompt, nil)
		return true, err
	}

	placeholder, err := f.msg.SendText(ctx, chatID, textWorking, nil)
	if err != nil {
		return true, fmt.Errorf("prompt: send placeholder: %w", err)
	}
	logger.Info(ctx, logger.CompPrompt, "prompt.capture",
		slog.Int("prompt_len", utf8.RuneCountInString(prompt)),
		slog.Int("placeholder_id", placeholder),
	)

	// The update is done once Capture returns; generation must not inherit its cancellation.
	bg := context.WithoutCancel(ctx)
	spawned = true
	go func() {
		defer f.wg.Done()
		f.generate(bg, job{userID: userID, chatID: chatID, prompt: prompt, placeholder: placeholder})
	}()
	return true, nil
}

// Cancel handles /cancel and the inline cancel button.
func (f *Flow) Cancel(ctx context.Context, userID, chatID int64) error {
	pending := f.tracker.Cancel(userID)
	text := textNothingPending
	if pending {
		text = textCancelled
	}
	logger.Info(ctx, logger.CompPrompt, "prompt.cancel", slog.Bool("pending", pending))
	_, err := f.msg.SendText(ctx, chatID, text, nil)
	return err
}

// Wait blocks until in-flight generations finished.
func (f *Flow) Wait() {
	f.wg.Wait()
}

// Close stops capturing prompts and waits for in-flight generations.
func (f *Flow) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.wg.Wait()
}

// enter registers a capture with the wait group unless the flow is closed.
func (f *Flow) enter() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.wg.Add(1)
	return true
}

type job struct {
	userID      int64
	chatID      int64
	prompt      string
	placeholder int
}

func (f *Flow) generate(ctx context.Context, j job) {
	start := time.Now()
	img, req, err := f.render(ctx, j)
	attrs := []slog.Attr{
		slog.String("model", req.Model),
		slog.String("aspect_ratio", req.AspectRatio),
		slog.String("image_size", req.ImageSize),
	}

	switch {
	case err != nil:
		logger.Error(ctx, logger.CompPrompt, "prompt.generate",
			append(attrs, slog.String("outcome", "fail"), slog.Duration("duration", logger.Took(start)), logger.Err(err))...)
		f.reportFailure(ctx, j)
	case img == nil:
		logger.Warn(ctx, logger.CompPrompt, "prompt.generate",
			append(attrs, slog.String("outcome", "no_image"), slog.Duration("duration", logger.Took(start)))...)
		if err := f.msg.EditText(ctx, j.chatID, j.placeholder, textNoImage, nil); err != nil {
			logger.Warn(ctx, logger.CompPrompt, "prompt.reply", slog.String("op", "edit"), logger.Err(err))
		}
	default:
		if err := f.deliver(ctx, j, img); err != nil {
			logger.Error(ctx, logger.CompPrompt, "prompt.generate",
				append(attrs, slog.String("outcome", "fail"), slog.Duration("duration", logger.Took(start)), logger.Err(err))...)
			f.reportFailure(ctx, j)
			return
		}
		logger.Info(ctx, logger.CompPrompt, "prompt.generate",
			append(attrs,
				slog.String("outcome", "ok"),
				slog.String("mime_type", img.MIMEType),
				slog.Int("bytes", len(img.Data)),
				slog.Duration("duration", logger.Took(start)),
			)...)
	}
}

// render reads the preferences fresh and calls the generator.
func (f *Flow) render(ctx context.Context, j job) (*imagegen.Image, imagegen.Request, error) {
	req := imagegen.Request{Prompt: j.prompt}
	prefs, err := f.prefs.Preferences(ctx, j.userID)
	if err != nil {
		return nil, req, fmt.Errorf("read preferences: %w", err)
	}
	req.AspectRatio = prefs.AspectRatio
	req.ImageSize = prefs.ImageSize
	req.Model = prefs.Model
	img, err := f.gen.Generate(ctx, req)
	return img, req, err
}

func (f *Flow) deliver(ctx context.Context, j job, img *imagegen.Image) error {
	if err := f.msg.Delete(ctx, j.chatID, j.placeholder); err != nil {
		logger.Warn(ctx, logger.CompPrompt, "prompt.reply", slog.String("op", "delete"), logger.Err(err))
	}
	_, err := f.msg.SendPhoto(ctx, j.chatID,
		telegram.Photo{Data: img.Data, Name: img.FileName()},
		Caption(j.prompt),
		&tele.SendOptions{ParseMode: tele.ModeMarkdownV2},
	)
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// reportFailure edits the placeholder, or sends a new message when that is
// not possible. Errors here are only logged.
func (f *Flow) reportFailure(ctx context.Context, j job) {
	err := f.msg.EditText(ctx, j.chatID, j.placeholder, textFailed, nil)
	if err == nil {
		return
	}
	logger.Warn(ctx, logger.CompPrompt, "prompt.reply", slog.String("op", "edit"), logger.Err(err))
	if _, err := f.msg.SendText(ctx, j.chatID, textFailed, nil); err != nil {
		logger.Warn(ctx, logger.CompPrompt, "prompt.reply", slog.String("op", "send"), logger.Err(err))
	}
}

// Caption renders the MarkdownV2 photo caption for prompt. Long prompts are
// cut on a rune boundary so the escaped caption stays within Telegram's limit.
func Caption(prompt string) string {
	budget := captionLimit - utf8.RuneCountInString(captionHeader)
	escaped := format.EscapeMarkdownV2(prompt)
	if utf8.RuneCountInString(escaped) <= budget {
		return captionHeader + escaped
	}
	const ellipsis = "…"
	budget -= utf8.RuneCountInString(ellipsis)
	var b strings.Builder
	used := 0
	for _, r := range prompt {
		part := format.EscapeMarkdownV2(string(r))
		n := utf8.RuneCountInString(part)
		if used+n > budget {
			break
		}
		b.WriteString(part)
		used += n
	}
	return captionHeader + b.String() + ellipsis
}
