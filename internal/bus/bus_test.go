package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishNoHandlersIsNoop(t *testing.T) {
	b := New(zap.NewNop())
	// must not panic or block
	b.Publish(context.Background(), "post.published", struct{}{})
}

func TestPublishInvokesAllHandlers(t *testing.T) {
	b := New(zap.NewNop())

	var mu sync.Mutex
	var got []string

	b.Subscribe("post.published", func(ctx context.Context, ev Event) error {
		mu.Lock()
		got = append(got, "a")
		mu.Unlock()
		return nil
	})
	b.Subscribe("post.published", func(ctx context.Context, ev Event) error {
		mu.Lock()
		got = append(got, "b")
		mu.Unlock()
		return nil
	})
	b.Subscribe("post.failed", func(ctx context.Context, ev Event) error {
		mu.Lock()
		got = append(got, "other")
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), "post.published", struct{}{})

	require.Len(t, got, 2)
	require.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestHandlerErrorDoesNotReachEmitterOrSiblings(t *testing.T) {
	b := New(zap.NewNop())

	var sibling bool
	b.Subscribe("post.failed", func(ctx context.Context, ev Event) error {
		return errors.New("boom")
	})
	b.Subscribe("post.failed", func(ctx context.Context, ev Event) error {
		sibling = true
		return nil
	})

	// Publish has no error return; an erroring handler is only logged.
	b.Publish(context.Background(), "post.failed", struct{}{})

	require.True(t, sibling)
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	b := New(zap.NewNop())

	var sibling bool
	b.Subscribe("post.published", func(ctx context.Context, ev Event) error {
		panic("handler exploded")
	})
	b.Subscribe("post.published", func(ctx context.Context, ev Event) error {
		sibling = true
		return nil
	})

	require.NotPanics(t, func() {
		b.Publish(context.Background(), "post.published", struct{}{})
	})
	require.True(t, sibling)
}

func TestSameHandlerSubscribedTwiceRunsTwice(t *testing.T) {
	b := New(zap.NewNop())

	var mu sync.Mutex
	n := 0
	h := func(ctx context.Context, ev Event) error {
		mu.Lock()
		n++
		mu.Unlock()
		return nil
	}

	s1 := b.Subscribe("post.published", h)
	s2 := b.Subscribe("post.published", h)
	require.NotEqual(t, s1, s2)

	b.Publish(context.Background(), "post.published", struct{}{})
	require.Equal(t, 2, n)
}

func TestUnsubscribe(t *testing.T) {
	b := New(zap.NewNop())

	n := 0
	sub := b.Subscribe("post.published", func(ctx context.Context, ev Event) error {
		n++
		return nil
	})

	b.Publish(context.Background(), "post.published", struct{}{})
	require.Equal(t, 1, n)

	b.Unsubscribe(sub)
	b.Publish(context.Background(), "post.published", struct{}{})
	require.Equal(t, 1, n)

	// unsubscribing a dead token is harmless
	b.Unsubscribe(sub)
}

func TestEventMetadata(t *testing.T) {
	b := New(zap.NewNop())

	var got Event
	b.Subscribe("post.published", func(ctx context.Context, ev Event) error {
		got = ev
		return nil
	})

	b.Publish(context.Background(), "post.published", "payload")
	require.Equal(t, "post.published", got.Name)
	require.Equal(t, "v1", got.Version)
	require.Equal(t, "payload", got.Payload)

	b.PublishVersioned(context.Background(), "post.published", "v2", "payload")
	require.Equal(t, "v2", got.Version)
}

func TestCloseDropsRegistrations(t *testing.T) {
	b := New(zap.NewNop())

	n := 0
	b.Subscribe("post.published", func(ctx context.Context, ev Event) error {
		n++
		return nil
	})

	b.Close()
	b.Publish(context.Background(), "post.published", struct{}{})
	require.Zero(t, n)
}
