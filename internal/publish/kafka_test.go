package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/prevword/internal/models"
	"github.com/DeafMist/prevword/internal/publish"
)

type stubWriter struct {
	failures int
	msgs     []kafka.Message
	calls    int
	closed   bool
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("broker unavailable")
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error {
	s.closed = true
	return nil
}

func TestPublishResolvedWord(t *testing.T) {
	w := &stubWriter{}
	p := publish.NewWithWriter(w, nil)

	res := models.Resolution{ID: "abc", PuzzleDate: "2024-01-05", TargetDate: "2024-01-04", Word: "BUGGY", SourceURL: "https://example.test"}
	require.NoError(t, p.Publish(context.Background(), res))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "2024-01-04", string(w.msgs[0].Key))

	var ev publish.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.Equal(t, "BUGGY", ev.Word)
	require.False(t, ev.Unknown)
	require.Equal(t, "abc", ev.ID)

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestPublishUnknown(t *testing.T) {
	w := &stubWriter{}
	p := publish.NewWithWriter(w, nil)

	require.NoError(t, p.Publish(context.Background(), models.Resolution{ID: "x", TargetDate: "2020-01-01", Unknown: true}))

	var ev publish.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.True(t, ev.Unknown)
	require.Equal(t, models.UnknownWord, ev.Word)
}

func TestPublishRetries(t *testing.T) {
	w := &stubWriter{failures: 2}
	p := publish.NewWithWriter(w, nil, publish.WithRetry(3, time.Millisecond))

	require.NoError(t, p.Publish(context.Background(), models.Resolution{ID: "x", TargetDate: "2024-01-04", Word: "BUGGY"}))
	require.Equal(t, 3, w.calls)
	require.Len(t, w.msgs, 1)
}

func TestPublishGivesUp(t *testing.T) {
	w := &stubWriter{failures: 10}
	p := publish.NewWithWriter(w, nil, publish.WithRetry(2, time.Millisecond))

	err := p.Publish(context.Background(), models.Resolution{ID: "x", TargetDate: "2024-01-04", Word: "BUGGY"})
	require.Error(t, err)
	require.Equal(t, 2, w.calls)
}
