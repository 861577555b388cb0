package event

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/flipstack/flipsim/logging"
)

var logLogger = log.With().Str("logger_name", "event::log").Logger()

// Sink receives serialized events as they are appended. Sinks must not
// assume they are called from a single goroutine across games; within
// one game calls are strictly ordered.
type Sink interface {
	Write(ev Event) error
}

// Log is the append-only event record of a single game. It always keeps
// the full in-memory sequence (the aggregator analyses it after the
// game); an optional sink additionally streams each event out.
type Log struct {
	gameID   string
	seq      uint64
	events   []Event
	sink     Sink
	sinkDown bool
}

func NewLog(gameID string, sink Sink) *Log {
	return &Log{gameID: gameID, sink: sink}
}

func (l *Log) GameID() string {
	return l.gameID
}

// Emit appends an event, assigning the next sequence number. The
// payload is serialized immediately so later mutation of the source
// value cannot rewrite history.
func (l *Log) Emit(round int, t Type, playerID string, payload interface{}) {
	ev := Event{
		Seq:      l.seq,
		Round:    round,
		Type:     t,
		PlayerID: playerID,
	}
	if payload != nil {
		raw, err := jsonAPI.Marshal(payload)
		if err != nil {
			// A payload that cannot serialize is a programming error in
			// the engine, not a recoverable game condition.
			panic("event: unable to serialize payload for " + string(t) + ": " + err.Error())
		}
		ev.Payload = raw
	}
	l.seq++
	l.events = append(l.events, ev)

	if l.sink != nil && !l.sinkDown {
		if err := l.sink.Write(ev); err != nil {
			// Losing the streamed copy degrades replay storage, not the
			// game itself; log once and keep the in-memory record.
			logLogger.Warn().
				Str(logging.GameIDKey, l.gameID).
				Msgf("Event sink failed, disabling for this game: %v", err)
			l.sinkDown = true
		}
	}
}

// Events returns a copy of the appended events.
func (l *Log) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len is the number of appended events.
func (l *Log) Len() int {
	return len(l.events)
}

// JSONLSink streams events as JSON Lines to a writer.
type JSONLSink struct {
	w *bufio.Writer
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: bufio.NewWriter(w)}
}

func (s *JSONLSink) Write(ev Event) error {
	raw, err := jsonAPI.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(raw); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	// Flush per event for crash safety; tournament throughput paths use
	// the NullSink instead.
	return s.w.Flush()
}

// NullSink discards events. The in-memory log is unaffected.
type NullSink struct{}

func (NullSink) Write(Event) error { return nil }

// ReadJSONL parses an event stream written by JSONLSink.
func ReadJSONL(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev Event
		if err := jsonAPI.Unmarshal(raw, &ev); err != nil {
			return nil, errInvalidLine(line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func errInvalidLine(line int, err error) error {
	return &InvalidLogError{Line: line, Err: err}
}

// InvalidLogError reports a malformed line in a stored event log.
type InvalidLogError struct {
	Line int
	Err  error
}

func (e *InvalidLogError) Error() string {
	return fmt.Sprintf("invalid event log line %d: %s", e.Line, e.Err)
}
