package telegram

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"github.com/m3rciful/imagebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// BotAPI is the subset of *tele.Bot used by Messenger.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Photo is an in-memory image to upload. Name becomes the multipart file
// name, "photo" when empty.
type Photo struct {
	Data []byte
	Name string
}

// Messenger addresses chats by id and returns message ids, for work that
// outlives the update that started it. Calls run synchronously through the
// dispatcher's retry policy when one is set.
type Messenger struct {
	api  BotAPI
	disp *sender.Dispatcher
}

// NewMessenger wraps api. disp may be nil, in which case each call is attempted once.
func NewMessenger(api BotAPI, disp *sender.Dispatcher) *Messenger {
	return &Messenger{api: api, disp: disp}
}

var errNilMessage = errors.New("telegram: empty response message")

func (m *Messenger) do(ctx context.Context, action, endpoint string, run func() error) error {
	if m.disp == nil {
		return run()
	}
	return m.disp.Do(ctx, action, endpoint, run)
}

// SendText sends text to chatID and returns the new message id.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) (int, error) {
	var sent *tele.Message
	err := m.do(ctx, "send.text", "sendMessage", func() error {
		var err error
		sent, err = m.api.Send(tele.ChatID(chatID), text, sendOpts(opts)...)
		return err
	})
	return messageID(sent, err)
}

// EditText replaces the text of an existing message.
func (m *Messenger) EditText(ctx context.Context, chatID int64, msgID int, text string, opts *tele.SendOptions) error {
	return m.do(ctx, "edit.text", "editMessageText", func() error {
		_, err := m.api.Edit(stored(chatID, msgID), text, sendOpts(opts)...)
		return err
	})
}

// Delete removes a message.
func (m *Messenger) Delete(ctx context.Context, chatID int64, msgID int) error {
	return m.do(ctx, "delete", "deleteMessage", func() error {
		return m.api.Delete(stored(chatID, msgID))
	})
}

// SendPhoto uploads p with a caption and returns the new message id.
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, p Photo, caption string, opts *tele.SendOptions) (int, error) {
	var sent *tele.Message
	err := m.do(ctx, "send.photo", "sendPhoto", func() error {
		// A fresh reader per attempt; a retried upload must start from byte zero.
		photo := &tele.Photo{File: namedReader(p.Name, p.Data), Caption: caption}
		var err error
		sent, err = m.api.Send(tele.ChatID(chatID), photo, sendOpts(opts)...)
		return err
	})
	return messageID(sent, err)
}

// namedReader builds an upload carrying name. Document is the only telebot
// type that exposes the multipart file name; the File copy keeps it.
func namedReader(name string, data []byte) tele.File {
	if name == "" {
		name = "photo"
	}
	doc := &tele.Document{File: tele.FromReader(bytes.NewReader(data)), FileName: name}
	return *doc.MediaFile()
}

func stored(chatID int64, msgID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: chatID}
}

func sendOpts(opts *tele.SendOptions) []interface{} {
	if opts == nil {
		return nil
	}
	return []interface{}{opts}
}

func messageID(msg *tele.Message, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if msg == nil {
		return 0, errNilMessage
	}
	return msg.ID, nil
}
