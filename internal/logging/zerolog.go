package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// Zerolog adapts a zerolog.Logger to the Logger contract.
type Zerolog struct {
	log zerolog.Logger
}

// NewZerolog builds a structured logger writing to w.
func NewZerolog(w io.Writer, level zerolog.Level) *Zerolog {
	return &Zerolog{log: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (z *Zerolog) Debug(msg string, args ...any) { emit(z.log.Debug(), msg, args) }
func (z *Zerolog) Info(msg string, args ...any)  { emit(z.log.Info(), msg, args) }
func (z *Zerolog) Warn(msg string, args ...any)  { emit(z.log.Warn(), msg, args) }
func (z *Zerolog) Error(msg string, args ...any) { emit(z.log.Error(), msg, args) }

func emit(event *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, args[i+1])
	}
	event.Msg(msg)
}
