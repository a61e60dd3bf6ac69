package platform

import (
	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/errors"
)

// Stream provides a multi-subscriber broadcast of typed platform events.
// Multiple listeners receive all events independently.
type Stream[T any] struct {
	eventChannel *EventChannel
	sink         diagnostics.Sink
	parser       func(data any) (T, error)
}

// NewStream creates a Stream wrapping an EventChannel.
// The parser converts raw event data to the typed value; parse failures and
// stream errors are reported to sink.
func NewStream[T any](channel *EventChannel, sink diagnostics.Sink, parser func(data any) (T, error)) *Stream[T] {
	return &Stream[T]{
		eventChannel: channel,
		sink:         diagnostics.OrNop(sink),
		parser:       parser,
	}
}

// Listen subscribes to events and returns an unsubscribe function.
func (s *Stream[T]) Listen(handler func(T)) (unsubscribe func()) {
	name := s.eventChannel.Name()
	sub := s.eventChannel.Listen(EventHandler{
		OnEvent: func(data any) {
			val, err := s.parser(data)
			if err != nil {
				errors.Report(s.sink, &errors.GrantError{
					Op:      "stream.parse",
					Kind:    errors.KindParsing,
					Channel: name,
					Err:     err,
				})
				return
			}
			handler(val)
		},
		OnError: func(err error) {
			errors.Report(s.sink, &errors.GrantError{
				Op:      "stream.error",
				Kind:    errors.KindPlatform,
				Channel: name,
				Err:     err,
			})
		},
	})
	return sub.Cancel
}
