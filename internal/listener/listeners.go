package listener

import (
	"context"
	"fmt"

	"github.com/postpilot/postpilot/internal/bus"
	"github.com/postpilot/postpilot/internal/logger"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/util"
	"github.com/postpilot/postpilot/internal/webhook"
	"go.uber.org/zap"
)

// Register wires the side-effect subscribers onto the bus: webhook
// delivery and in-app notifications. Each handler is isolated by the bus;
// a failing webhook never touches publishing state.
func Register(b *bus.Bus, wh *webhook.Dispatcher, notifications repository.NotificationsRepository) {
	b.Subscribe(model.EventPostPublished, webhookHandler(wh))
	b.Subscribe(model.EventPostFailed, webhookHandler(wh))
	b.Subscribe(model.EventPostPublished, notifyPublished(notifications))
	b.Subscribe(model.EventPostFailed, notifyFailed(notifications))
}

func webhookHandler(wh *webhook.Dispatcher) bus.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		if err := wh.Dispatch(ctx, ev.Name, ev.Payload); err != nil {
			// Final webhook failure is logged here and goes no further.
			logger.Log.Error("webhook dispatch exhausted",
				zap.String("event", ev.Name),
				zap.Error(err))
		}
		return nil
	}
}

func notifyPublished(repo repository.NotificationsRepository) bus.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		p, ok := ev.Payload.(model.PostPublishedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T for %s", ev.Payload, ev.Name)
		}
		return repo.Insert(ctx, model.Notification{
			ID:     util.NewID(),
			UserID: p.AuthorID,
			Kind:   model.NotificationPostPublished,
			Body:   fmt.Sprintf("Your post was published on %s.", p.Provider),
		})
	}
}

func notifyFailed(repo repository.NotificationsRepository) bus.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		p, ok := ev.Payload.(model.PostFailedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T for %s", ev.Payload, ev.Name)
		}
		if p.AuthorID == 0 {
			// Data-integrity failure with no resolvable author.
			return nil
		}
		return repo.Insert(ctx, model.Notification{
			ID:     util.NewID(),
			UserID: p.AuthorID,
			Kind:   model.NotificationPostFailed,
			Body:   fmt.Sprintf("Publishing failed after %d attempts: %s", p.Attempt, p.Error),
		})
	}
}
