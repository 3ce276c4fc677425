package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	sent    []tgbotapi.Chattable
	sendErr error
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func TestSendMessage(t *testing.T) {
	api := &mockSender{}
	n := newNotifier(api, 1000)

	require.NoError(t, n.SendMessage(context.Background(), 42, "hello", 7))
	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, 7, msg.ReplyToMessageID)
}

func TestSendMessage_NoReplyThreading(t *testing.T) {
	api := &mockSender{}
	n := newNotifier(api, 1000)

	require.NoError(t, n.SendMessage(context.Background(), 42, "hello", 0))

	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Zero(t, msg.ReplyToMessageID)
}

func TestSendDocument_UsesFileReference(t *testing.T) {
	api := &mockSender{}
	n := newNotifier(api, 1000)

	require.NoError(t, n.SendDocument(context.Background(), 42, "BQACAgIAAx", 9))
	require.Len(t, api.sent, 1)

	doc, ok := api.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), doc.ChatID)
	assert.Equal(t, tgbotapi.FileID("BQACAgIAAx"), doc.File)
	assert.Equal(t, 9, doc.ReplyToMessageID)
}

func TestSend_ThrottlesArbitraryPayloads(t *testing.T) {
	api := &mockSender{}
	n := newNotifier(api, 1000)

	edit := tgbotapi.NewEditMessageText(42, 9, "updated")
	msg, err := n.Send(context.Background(), edit)
	require.NoError(t, err)
	assert.NotZero(t, msg.MessageID)

	require.Len(t, api.sent, 1)
	sent, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, "updated", sent.Text)
}

func TestSend_ErrorsPropagate(t *testing.T) {
	api := &mockSender{sendErr: errors.New("chat not found")}
	n := newNotifier(api, 1000)

	err := n.SendMessage(context.Background(), 42, "hello", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	err = n.SendDocument(context.Background(), 42, "ref", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSend_RespectsContextCancellation(t *testing.T) {
	api := &mockSender{}
	// Rate of one per hour: the second send must wait, so a cancelled
	// context aborts it before the API is touched.
	n := newNotifier(api, 1.0/3600)

	require.NoError(t, n.SendMessage(context.Background(), 42, "first", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := n.SendMessage(ctx, 42, "second", 0)
	require.Error(t, err)
	assert.Len(t, api.sent, 1)
}
