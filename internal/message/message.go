package message

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

type CommandType string

// CommandCleanCache runs image eviction on demand.
const CommandCleanCache CommandType = "CLEAN_CACHE"

type Command struct {
	Type CommandType `json:"type"`
}

// Reply is the outcome of a dispatched command.
type Reply struct {
	Type    CommandType `json:"type"`
	OK      bool        `json:"ok"`
	Removed int         `json:"removed"`
	Error   string      `json:"error,omitempty"`
}

// Decode parses a JSON command. Unknown fields are ignored; a missing or
// empty type is malformed.
func Decode(payload []byte) (Command, error) {
	var cmd Command
	if len(bytes.TrimSpace(payload)) == 0 {
		return Command{}, &MessageError{Message: "empty payload", Cause: ErrCauseMalformed}
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, &MessageError{Message: err.Error(), Cause: ErrCauseMalformed}
	}
	cmd.Type = CommandType(strings.TrimSpace(string(cmd.Type)))
	if cmd.Type == "" {
		return Command{}, &MessageError{Message: "missing type", Cause: ErrCauseMalformed}
	}
	return cmd, nil
}

type Cleaner interface {
	Clean(ctx context.Context) (int, error)
}

// Dispatch executes cmd. The returned Reply is always populated, also on
// error.
func Dispatch(ctx context.Context, cmd Command, cleaner Cleaner) (Reply, error) {
	reply := Reply{Type: cmd.Type}

	switch cmd.Type {
	case CommandCleanCache:
		removed, err := cleaner.Clean(ctx)
		reply.Removed = removed
		if err != nil {
			reply.Error = err.Error()
			return reply, err
		}
		reply.OK = true
		return reply, nil
	default:
		err := &MessageError{Message: string(cmd.Type), Cause: ErrCauseUnknownCommand}
		reply.Error = err.Error()
		return reply, err
	}
}
