package message_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Dhairya-911/vedang-portfolio/internal/message"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    message.CommandType
		cause   message.MessageErrorCause
	}{
		{"clean cache", `{"type":"CLEAN_CACHE"}`, message.CommandCleanCache, ""},
		{"extra fields ignored", `{"type":"CLEAN_CACHE","from":"page"}`, message.CommandCleanCache, ""},
		{"unknown type still decodes", `{"type":"SYNC"}`, "SYNC", ""},
		{"empty payload", ``, "", message.ErrCauseMalformed},
		{"not json", `CLEAN_CACHE`, "", message.ErrCauseMalformed},
		{"missing type", `{}`, "", message.ErrCauseMalformed},
		{"blank type", `{"type":"  "}`, "", message.ErrCauseMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := message.Decode([]byte(tt.payload))
			if tt.cause != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, &message.MessageError{Cause: tt.cause}))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Type)
		})
	}
}

type cleanerStub struct {
	removed int
	err     error
	calls   int
}

func (c *cleanerStub) Clean(context.Context) (int, error) {
	c.calls++
	return c.removed, c.err
}

func TestDispatch_CleanCache(t *testing.T) {
	cleaner := &cleanerStub{removed: 4}

	reply, err := message.Dispatch(context.Background(), message.Command{Type: message.CommandCleanCache}, cleaner)

	require.NoError(t, err)
	assert.Equal(t, message.Reply{Type: message.CommandCleanCache, OK: true, Removed: 4}, reply)
	assert.Equal(t, 1, cleaner.calls)
}

func TestDispatch_CleanCacheFailure(t *testing.T) {
	cleaner := &cleanerStub{err: errors.New("disk is full")}

	reply, err := message.Dispatch(context.Background(), message.Command{Type: message.CommandCleanCache}, cleaner)

	require.Error(t, err)
	assert.False(t, reply.OK)
	assert.Equal(t, "disk is full", reply.Error)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	cleaner := &cleanerStub{}

	reply, err := message.Dispatch(context.Background(), message.Command{Type: "SKIP_WAITING"}, cleaner)

	require.Error(t, err)
	assert.True(t, errors.Is(err, &message.MessageError{Cause: message.ErrCauseUnknownCommand}))
	assert.False(t, failure.IsFatal(err))
	assert.False(t, reply.OK)
	assert.Zero(t, cleaner.calls)
}
