package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/imagebot/core/telegram/sender"
)

type call struct {
	op   string
	to   string
	msg  tele.StoredMessage
	what interface{}
}

type fakeBotAPI struct {
	calls   []call
	nextID  int
	sendErr []error
}

func (f *fakeBotAPI) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	if p, ok := what.(*tele.Photo); ok {
		data, _ := io.ReadAll(p.FileReader)
		what = string(data) + "|" + p.Caption
	}
	f.calls = append(f.calls, call{op: "send", to: to.Recipient(), what: what})
	if len(f.sendErr) > 0 {
		err := f.sendErr[0]
		f.sendErr = f.sendErr[1:]
		if err != nil {
			return nil, err
		}
	}
	f.nextID++
	return &tele.Message{ID: f.nextID}, nil
}

func (f *fakeBotAPI) Edit(msg tele.Editable, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.calls = append(f.calls, call{op: "edit", msg: msg.(tele.StoredMessage), what: what})
	return &tele.Message{}, nil
}

func (f *fakeBotAPI) Delete(msg tele.Editable) error {
	f.calls = append(f.calls, call{op: "delete", msg: msg.(tele.StoredMessage)})
	return nil
}

func TestMessengerAddressesChatsByID(t *testing.T) {
	api := &fakeBotAPI{nextID: 100}
	m := NewMessenger(api, nil)
	ctx := context.Background()

	id, err := m.SendText(ctx, 42, "⏳ working", nil)
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	require.NoError(t, m.EditText(ctx, 42, id, "done", &tele.SendOptions{ParseMode: tele.ModeMarkdown}))
	require.NoError(t, m.Delete(ctx, 42, id))

	require.Len(t, api.calls, 3)
	assert.Equal(t, "42", api.calls[0].to)
	assert.Equal(t, tele.StoredMessage{MessageID: "101", ChatID: 42}, api.calls[1].msg)
	assert.Equal(t, "done", api.calls[1].what)
	assert.Equal(t, "delete", api.calls[2].op)
}

func TestMessengerRetriesPhotoWithFreshReader(t *testing.T) {
	transient := errors.New("transient")
	api := &fakeBotAPI{sendErr: []error{transient, nil}}
	disp := sender.NewDispatcher(sender.Options{
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
		ShouldRetry:  func(err error) bool { return errors.Is(err, transient) },
	})
	t.Cleanup(disp.Close)

	m := NewMessenger(api, disp)
	id, err := m.SendPhoto(context.Background(), 7, Photo{Data: []byte("png")}, "cap", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.Len(t, api.calls, 2)
	assert.Equal(t, "png|cap", api.calls[0].what)
	assert.Equal(t, "png|cap", api.calls[1].what)
}

func TestMessengerPropagatesErrors(t *testing.T) {
	api := &fakeBotAPI{sendErr: []error{errors.New("chat not found")}}
	_, err := NewMessenger(api, nil).SendText(context.Background(), 1, "x", nil)
	assert.EqualError(t, err, "chat not found")
}

func TestMessengerUploadsPhotoWithFileName(t *testing.T) {
	var (
		mu       sync.Mutex
		path     string
		fileName string
		body     string
		caption  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			caption = r.FormValue("caption")
			if fhs := r.MultipartForm.File["photo"]; len(fhs) > 0 {
				fileName = fhs[0].Filename
				if f, err := fhs[0].Open(); err == nil {
					data, _ := io.ReadAll(f)
					body = string(data)
					_ = f.Close()
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":9,"chat":{"id":7,"type":"private"},`+
			`"photo":[{"file_id":"f1","file_unique_id":"u1","width":1,"height":1}],"caption":"cap"}}`)
	}))
	t.Cleanup(srv.Close)

	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "123:abc", Offline: true})
	require.NoError(t, err)

	id, err := NewMessenger(b, nil).SendPhoto(context.Background(), 7,
		Photo{Data: []byte("jpeg-bytes"), Name: "generated-image.jpg"}, "cap", nil)
	require.NoError(t, err)
	assert.Equal(t, 9, id)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/bot123:abc/sendPhoto", path)
	assert.Equal(t, "generated-image.jpg", fileName)
	assert.Equal(t, "jpeg-bytes", body)
	assert.Equal(t, "cap", caption)
}
