package mirror

import (
	"errors"
	"testing"
	"time"
)

func TestSinkMessageAfterCloseReturnsErrChannelClosed(t *testing.T) {
	ch := make(chan Update, 1)
	s := newSink(ch, 0)
	close(ch)

	err := s.message(Message{Content: "too late"})
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestSinkProgressRateLimitsWithinInterval(t *testing.T) {
	ch := make(chan Update, 10)
	s := newSink(ch, time.Hour)

	if err := s.progress("r", Progress{BytesWritten: 1}, false); err != nil {
		t.Fatalf("first progress: %v", err)
	}
	if err := s.progress("r", Progress{BytesWritten: 2}, false); err != nil {
		t.Fatalf("second progress: %v", err)
	}

	close(ch)
	var got []Update
	for u := range ch {
		got = append(got, u)
	}
	if len(got) != 1 {
		t.Fatalf("expected the second call to be rate-limited away, got %d events: %+v", len(got), got)
	}
}

func TestSinkProgressDoneAlwaysPassesRateGate(t *testing.T) {
	ch := make(chan Update, 10)
	s := newSink(ch, time.Hour)

	if err := s.progress("r", Progress{BytesWritten: 1}, false); err != nil {
		t.Fatalf("first progress: %v", err)
	}
	if err := s.progress("r", Progress{BytesWritten: 2}, true); err != nil {
		t.Fatalf("final progress: %v", err)
	}

	close(ch)
	var got []Update
	for u := range ch {
		got = append(got, u)
	}
	if len(got) != 2 {
		t.Fatalf("expected the final=true call to bypass the rate gate, got %d events: %+v", len(got), got)
	}
}
