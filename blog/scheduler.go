package blog

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PublishScheduledJob publishes draft posts flagged as scheduled once their
// publish time has passed.
type PublishScheduledJob struct {
	store  PostWriter
	feed   *Feed
	logger *slog.Logger
	now    func() time.Time
}

func NewPublishScheduledJob(store PostWriter, feed *Feed, logger *slog.Logger) *PublishScheduledJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishScheduledJob{store: store, feed: feed, logger: logger, now: time.Now}
}

func (j *PublishScheduledJob) Name() string {
	return "PublishScheduledJob"
}

// Run implements cron.Job.
func (j *PublishScheduledJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("scheduled publish failed", slog.Any("error", err))
	}
}

// RunOnce publishes every due post and reports how many were published.
func (j *PublishScheduledJob) RunOnce(ctx context.Context) (int, error) {
	due, err := j.store.DueScheduledPosts(ctx, j.now())
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		j.logger.Debug("no scheduled posts due")
		return 0, nil
	}

	published := 0
	for _, p := range due {
		if err := j.store.PublishPost(ctx, p.ID); err != nil {
			j.logger.Error("publish scheduled post",
				slog.Int64("post_id", p.ID),
				slog.String("title", p.Title),
				slog.Any("error", err),
			)
			continue
		}
		j.logger.Info("scheduled post published",
			slog.Int64("post_id", p.ID),
			slog.String("title", p.Title),
			slog.Time("publish", p.Publish),
		)
		published++
	}

	if published > 0 && j.feed != nil {
		if err := j.feed.Invalidate(ctx); err != nil {
			j.logger.Warn("feed cache invalidation failed", slog.Any("error", err))
		}
	}
	return published, nil
}

// StartScheduler runs job every minute until ctx is done.
func StartScheduler(ctx context.Context, job *PublishScheduledJob, logger *slog.Logger) *cron.Cron {
	c := cron.New(
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)
	if _, err := c.AddJob("@every 1m", job); err != nil {
		logger.Error("register scheduled publish job", slog.Any("error", err))
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c
}
