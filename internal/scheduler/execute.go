package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/postpilot/postpilot/internal/metrics"
	"github.com/postpilot/postpilot/internal/model"
	"go.uber.org/zap"
)

// Kafka topics for the outbox leg of the terminal events.
const (
	TopicPostPublished = "posts.published"
	TopicPostFailed    = "posts.failed"
)

// execute drives one job through a single attempt. Every error is
// contained here; nothing propagates to the tick loop.
func (s *Scheduler) execute(ctx context.Context, job model.Job) {
	unlock := s.locks.lock(job.PostID)
	defer unlock()

	post, err := s.posts.Get(ctx, job.PostID)
	if err != nil {
		s.log.Error("load post", zap.String("job", job.ID), zap.Error(err))
		return
	}
	if post == nil {
		s.failPermanently(ctx, job, nil, 0, job.Attempt, fmt.Sprintf("post %s not found", job.PostID))
		return
	}

	target, err := s.targets.Get(ctx, job.TargetID)
	if err != nil {
		s.log.Error("load target", zap.String("job", job.ID), zap.Error(err))
		return
	}
	if target == nil {
		s.failPermanently(ctx, job, nil, post.AuthorID, job.Attempt, fmt.Sprintf("post target %s not found", job.TargetID))
		return
	}

	account, err := s.accounts.Get(ctx, target.AccountID)
	if err != nil {
		s.log.Error("load account", zap.String("job", job.ID), zap.Error(err))
		return
	}
	if account == nil {
		s.failPermanently(ctx, job, target, post.AuthorID, job.Attempt, fmt.Sprintf("social account %s not found", target.AccountID))
		return
	}

	pub, err := s.providers.Lookup(job.Provider)
	if err != nil {
		s.failPermanently(ctx, job, target, post.AuthorID, job.Attempt, err.Error())
		return
	}

	executedAt := s.now()
	if err := s.jobs.MarkProcessing(ctx, job.ID, executedAt); err != nil {
		s.log.Error("mark job processing", zap.String("job", job.ID), zap.Error(err))
		return
	}
	if err := s.targets.MarkProcessing(ctx, target.ID); err != nil {
		s.log.Error("mark target processing", zap.String("target", target.ID), zap.Error(err))
	}

	token, err := s.accounts.LatestActiveToken(ctx, account.ID)
	if err != nil {
		s.log.Error("load access token", zap.String("job", job.ID), zap.Error(err))
		s.retry(ctx, job, target, post, err)
		return
	}
	if token == nil {
		s.failPermanently(ctx, job, target, post.AuthorID, job.Attempt, "Access token not found.")
		return
	}

	req, err := s.buildRequest(ctx, post.ID, token.AccessToken, account.ProviderAccountID)
	if err != nil {
		s.retry(ctx, job, target, post, err)
		return
	}

	// Every attempt re-invokes the provider; a call that failed after
	// succeeding externally yields a duplicate remote post, an accepted
	// at-least-once risk. The per-attempt timeout keeps a hung provider
	// from stalling the pipeline.
	pubCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	res, err := pub.Publish(pubCtx, req)
	cancel()
	if err != nil {
		s.retry(ctx, job, target, post, err)
		return
	}

	publishedAt := res.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = s.now()
	}
	if err := s.targets.MarkSuccess(ctx, target.ID, res.ExternalPostID, res.ExternalURL, publishedAt); err != nil {
		s.log.Error("mark target success", zap.String("target", target.ID), zap.Error(err))
	}
	if err := s.jobs.MarkSuccess(ctx, job.ID); err != nil {
		s.log.Error("mark job success", zap.String("job", job.ID), zap.Error(err))
	}

	metrics.JobsTotal.WithLabelValues("success", job.Provider).Inc()

	ev := model.PostPublishedEvent{
		PostID:         post.ID,
		AuthorID:       post.AuthorID,
		Provider:       job.Provider,
		ExternalPostID: res.ExternalPostID,
		ExternalURL:    res.ExternalURL,
		PublishedAt:    publishedAt,
	}
	s.bus.Publish(ctx, model.EventPostPublished, ev)
	s.appendOutbox(ctx, post.ID, TopicPostPublished, ev)

	s.aggregate(ctx, post.ID)
}

// buildRequest concatenates all locale bodies and orders media; more
// than one media item makes the publish a carousel.
func (s *Scheduler) buildRequest(ctx context.Context, postID, accessToken, providerAccountID string) (model.PublishRequest, error) {
	contents, err := s.posts.ListContent(ctx, postID)
	if err != nil {
		return model.PublishRequest{}, fmt.Errorf("load content: %w", err)
	}
	media, err := s.posts.ListMedia(ctx, postID)
	if err != nil {
		return model.PublishRequest{}, fmt.Errorf("load media: %w", err)
	}

	bodies := make([]string, 0, len(contents))
	for _, c := range contents {
		bodies = append(bodies, c.Body)
	}

	urls := make([]string, 0, len(media))
	for _, m := range media {
		urls = append(urls, m.URL)
	}

	kind := model.PublishKindFeed
	if len(urls) > 1 {
		kind = model.PublishKindCarousel
	}

	return model.PublishRequest{
		Text:              strings.Join(bodies, "\n\n"),
		Media:             urls,
		Kind:              kind,
		AccessToken:       accessToken,
		ProviderAccountID: providerAccountID,
	}, nil
}

// retry handles a transient failure: bump the attempt on job and target,
// reschedule with capped exponential backoff, or promote to permanent
// failure once attempts are exhausted. No event is emitted on a
// transient retry.
func (s *Scheduler) retry(ctx context.Context, job model.Job, target *model.PostTarget, post *model.Post, cause error) {
	attempt := job.Attempt + 1
	msg := cause.Error()

	if attempt >= s.cfg.MaxAttempts {
		s.failPermanently(ctx, job, target, post.AuthorID, attempt, msg)
		return
	}

	shift := attempt
	if shift > s.cfg.BackoffMaxShift {
		shift = s.cfg.BackoffMaxShift
	}
	delay := s.cfg.BackoffBase << shift

	if err := s.jobs.Reschedule(ctx, job.ID, attempt, msg, s.now().Add(delay)); err != nil {
		s.log.Error("reschedule job", zap.String("job", job.ID), zap.Error(err))
	}
	if target != nil {
		if err := s.targets.MarkFailed(ctx, target.ID, attempt, msg); err != nil {
			s.log.Error("mark target failed", zap.String("target", target.ID), zap.Error(err))
		}
	}

	metrics.JobsTotal.WithLabelValues("retried", job.Provider).Inc()
	s.log.Warn("publish attempt failed, rescheduled",
		zap.String("job", job.ID),
		zap.Int("attempt", attempt),
		zap.Duration("backoff", delay),
		zap.String("error", msg))

	s.aggregate(ctx, job.PostID)
}

// failPermanently is the only failure path that notifies downstream
// consumers. Data-integrity failures arrive here with the attempt count
// unchanged; exhausted retries arrive with the final count.
func (s *Scheduler) failPermanently(ctx context.Context, job model.Job, target *model.PostTarget, authorID int64, attempt int, msg string) {
	if err := s.jobs.MarkFailed(ctx, job.ID, attempt, msg); err != nil {
		s.log.Error("mark job failed", zap.String("job", job.ID), zap.Error(err))
	}
	if target != nil {
		if err := s.targets.MarkFailed(ctx, target.ID, attempt, msg); err != nil {
			s.log.Error("mark target failed", zap.String("target", target.ID), zap.Error(err))
		}
	}

	metrics.JobsTotal.WithLabelValues("failed", job.Provider).Inc()
	s.log.Error("job failed permanently",
		zap.String("job", job.ID),
		zap.String("post", job.PostID),
		zap.Int("attempt", attempt),
		zap.String("error", msg))

	s.aggregate(ctx, job.PostID)

	ev := model.PostFailedEvent{
		PostID:   job.PostID,
		AuthorID: authorID,
		Error:    msg,
		Attempt:  attempt,
	}
	s.bus.Publish(ctx, model.EventPostFailed, ev)
	s.appendOutbox(ctx, job.PostID, TopicPostFailed, ev)
}

// aggregate recomputes the post's status from its targets. Runs under
// the per-post lock of the calling job.
func (s *Scheduler) aggregate(ctx context.Context, postID string) {
	statuses, err := s.targets.ListStatusesByPost(ctx, postID)
	if err != nil {
		s.log.Error("list target statuses", zap.String("post", postID), zap.Error(err))
		return
	}

	status, ok := model.ResolvePostStatus(statuses)
	if !ok {
		return
	}

	var publishedAt sql.NullTime
	if status == model.PostStatusPublished {
		publishedAt = sql.NullTime{Time: s.now(), Valid: true}
	}

	if err := s.posts.UpdateStatus(ctx, postID, status, publishedAt); err != nil {
		s.log.Error("update post status", zap.String("post", postID), zap.Error(err))
	}
}

// appendOutbox writes the durable leg of a terminal event. Best effort:
// the in-process listeners already ran.
func (s *Scheduler) appendOutbox(ctx context.Context, postID, topic string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal outbox payload", zap.String("post", postID), zap.Error(err))
		return
	}
	if err := s.outbox.Insert(ctx, nil, "post", postID, topic, b); err != nil {
		s.log.Error("insert outbox event", zap.String("post", postID), zap.Error(err))
	}
}
