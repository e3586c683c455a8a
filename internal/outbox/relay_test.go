package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOutboxRepo struct {
	unpublished []model.OutboxEvent
	published   []int64
}

func (f *fakeOutboxRepo) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) error {
	return nil
}

func (f *fakeOutboxRepo) ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows := f.unpublished
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeOutboxRepo) MarkPublished(ctx context.Context, ids []int64, at time.Time) error {
	f.published = append(f.published, ids...)
	return nil
}

type writtenMsg struct {
	topic string
	key   string
	value string
}

type fakeWriter struct {
	written []writtenMsg
}

func (f *fakeWriter) Write(ctx context.Context, topic, key string, value []byte) error {
	f.written = append(f.written, writtenMsg{topic: topic, key: key, value: string(value)})
	return nil
}

type selectiveWriter struct {
	fakeWriter
	fail func(topic string) bool
}

func (f *selectiveWriter) Write(ctx context.Context, topic, key string, value []byte) error {
	if f.fail(topic) {
		return errors.New("broker unavailable")
	}
	return f.fakeWriter.Write(ctx, topic, key, value)
}

func TestDrainShipsAndStamps(t *testing.T) {
	repo := &fakeOutboxRepo{unpublished: []model.OutboxEvent{
		{ID: 1, AggregateID: "p1", Topic: "posts.published", Payload: []byte(`{"post_id":"p1"}`)},
		{ID: 2, AggregateID: "p2", Topic: "posts.failed", Payload: []byte(`{"post_id":"p2"}`)},
	}}
	w := &fakeWriter{}
	r := NewRelay(repo, w, zap.NewNop())

	r.drain(context.Background())

	require.Equal(t, []writtenMsg{
		{topic: "posts.published", key: "p1", value: `{"post_id":"p1"}`},
		{topic: "posts.failed", key: "p2", value: `{"post_id":"p2"}`},
	}, w.written)
	require.Equal(t, []int64{1, 2}, repo.published)
}

func TestDrainKeepsFailedRowsUnpublished(t *testing.T) {
	repo := &fakeOutboxRepo{unpublished: []model.OutboxEvent{
		{ID: 1, AggregateID: "p1", Topic: "posts.published", Payload: []byte(`a`)},
		{ID: 2, AggregateID: "p2", Topic: "posts.failed", Payload: []byte(`b`)},
	}}
	w := &selectiveWriter{fail: func(topic string) bool { return topic == "posts.published" }}
	r := NewRelay(repo, w, zap.NewNop())

	r.drain(context.Background())

	require.Len(t, w.written, 1)
	require.Equal(t, "posts.failed", w.written[0].topic)
	require.Equal(t, []int64{2}, repo.published)
}

func TestDrainRespectsBatchSize(t *testing.T) {
	repo := &fakeOutboxRepo{unpublished: []model.OutboxEvent{
		{ID: 1, Topic: "posts.published"},
		{ID: 2, Topic: "posts.published"},
		{ID: 3, Topic: "posts.published"},
	}}
	w := &fakeWriter{}
	r := NewRelay(repo, w, zap.NewNop())
	r.BatchSize = 2

	r.drain(context.Background())

	require.Len(t, w.written, 2)
	require.Equal(t, []int64{1, 2}, repo.published)
}

func TestRunStopsOnCancel(t *testing.T) {
	r := NewRelay(&fakeOutboxRepo{}, &fakeWriter{}, zap.NewNop())
	r.PollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
