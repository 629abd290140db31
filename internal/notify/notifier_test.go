package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"
)

type fakeSender struct {
	sent []sentMessage
	err  error
}

type sentMessage struct {
	userID int64
	text   string
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	user, _ := to.(*tele.User)
	text, _ := what.(string)

	var userID int64
	if user != nil {
		userID = user.ID
	}

	f.sent = append(f.sent, sentMessage{userID: userID, text: text})
	if f.err != nil {
		return nil, f.err
	}

	return &tele.Message{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTelegramNotifier_Notify(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(sender, nil, testLogger())

	err := notifier.Notify(context.Background(), 42, "en", "subscription.expired", nil)
	assert.NoError(t, err)

	if assert.Len(t, sender.sent, 1) {
		assert.Equal(t, int64(42), sender.sent[0].userID)
		assert.Equal(t, "subscription.expired", sender.sent[0].text)
	}
}

func TestTelegramNotifier_ParamSubstitution(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(sender, nil, testLogger())

	err := notifier.Notify(context.Background(), 7, "en", "{days} days left", map[string]string{"days": "5"})
	assert.NoError(t, err)

	if assert.Len(t, sender.sent, 1) {
		assert.Equal(t, "5 days left", sender.sent[0].text)
	}
}

func TestTelegramNotifier_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram unavailable")}
	notifier := NewTelegramNotifier(sender, nil, testLogger())

	err := notifier.Notify(context.Background(), 42, "en", "subscription.expired", nil)
	assert.Error(t, err)
}
