package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"
)

type fakeSetter struct {
	calls [][]interface{}
	err   error
}

func (f *fakeSetter) SetCommands(opts ...interface{}) error {
	f.calls = append(f.calls, opts)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_RefreshCommands(t *testing.T) {
	testCases := []struct {
		name          string
		subscribed    bool
		expectedCount int
	}{
		{
			name:          "base commands for unsubscribed user",
			subscribed:    false,
			expectedCount: len(baseCommands),
		},
		{
			name:          "full menu for subscriber",
			subscribed:    true,
			expectedCount: len(baseCommands) + len(subscriberCommands),
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			setter := &fakeSetter{}
			reg := NewRegistry(setter, nil, testLogger())

			err := reg.RefreshCommands(context.Background(), 42, "en", tc.subscribed)
			assert.NoError(t, err)

			if assert.Len(t, setter.calls, 1) {
				opts := setter.calls[0]
				if assert.Len(t, opts, 2) {
					cmds, ok := opts[0].([]tele.Command)
					if assert.True(t, ok) {
						assert.Len(t, cmds, tc.expectedCount)
					}

					scope, ok := opts[1].(tele.CommandScope)
					if assert.True(t, ok) {
						assert.Equal(t, tele.CommandScopeChat, scope.Type)
						assert.Equal(t, int64(42), scope.ChatID)
					}
				}
			}
		})
	}
}

func TestRegistry_RefreshCommandsError(t *testing.T) {
	setter := &fakeSetter{err: errors.New("telegram unavailable")}
	reg := NewRegistry(setter, nil, testLogger())

	err := reg.RefreshCommands(context.Background(), 42, "en", true)
	assert.Error(t, err)
}
