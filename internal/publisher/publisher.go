// Package publisher delivers rendered post text and media through the posting
// client, with retry, backoff and rate-limit awareness.
package publisher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
	"github.com/avikko/wxpost/internal/logging"
	"github.com/avikko/wxpost/internal/observability/metrics"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelInfo)
	logger, _, err = logging.NewFileLogger("logs/publisher.log", "publisher", serviceLevelVar)
	if err != nil {
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "publisher")
	}
}

// Client is the already-authenticated posting endpoint. Implementations must return
// a RateLimitError (wrapped or not) for rate-limit conditions so the retry loop can
// honor the server-supplied wait.
type Client interface {
	UploadMedia(ctx context.Context, data []byte, mime string) (string, error)
	Post(ctx context.Context, text string, mediaHandles []string) (string, error)
}

// RateLimitError signals a rate-limited request with an optional server-supplied
// minimum wait before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// PostAttempt tracks one firing's delivery. It is created per scheduled firing,
// mutated only by the retry loop, and discarded after terminal success or
// exhaustion.
type PostAttempt struct {
	Text      string
	MediaRefs []string
	Attempts  int
	LastErr   error
}

// PostResult is the terminal success outcome.
type PostResult struct {
	PostID   string
	Attempts int
}

// resolvedMedia is a media reference fetched into memory, ready for upload.
type resolvedMedia struct {
	ref  string
	data []byte
	mime string
}

// Publisher drives media resolution, upload and posting with bounded retries.
type Publisher struct {
	client      Client
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration
	metrics     *metrics.PipelineMetrics

	sleep func(ctx context.Context, d time.Duration) error // test seam
}

// New creates a Publisher around an authenticated client.
func New(client Client, settings conf.PublishSettings, pipelineMetrics *metrics.PipelineMetrics) *Publisher {
	perMinute := settings.RatePerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	return &Publisher{
		client:      client,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		maxAttempts: settings.MaxAttempts,
		backoffBase: time.Duration(settings.BackoffBaseSeconds) * time.Second,
		backoffMax:  time.Duration(settings.BackoffMaxSeconds) * time.Second,
		metrics:     pipelineMetrics,
		sleep:       sleepCtx,
	}
}

// Publish resolves media, uploads it, and submits the post. Transient failures
// (network, 5xx, rate limit) are retried with exponential backoff up to the attempt
// ceiling, honoring any server-supplied retry-after as a floor on the wait. Auth and
// validation failures surface immediately. Media resolution failure is fatal for the
// firing: a caption without its matching image is a failed post, not a degraded one.
func (p *Publisher) Publish(ctx context.Context, text string, mediaRefs []string) (*PostResult, error) {
	media, err := p.resolveMedia(ctx, mediaRefs)
	if err != nil {
		return nil, err
	}

	attempt := &PostAttempt{Text: text, MediaRefs: mediaRefs}

	for attempt.Attempts < p.maxAttempts {
		attempt.Attempts++

		postID, err := p.attemptOnce(ctx, attempt.Text, media)
		if err == nil {
			p.metrics.RecordPublishAttempt("success")
			logger.Info("post published", "post_id", postID, "attempts", attempt.Attempts)
			return &PostResult{PostID: postID, Attempts: attempt.Attempts}, nil
		}
		attempt.LastErr = err

		if isFatal(err) {
			p.metrics.RecordPublishAttempt("fatal_error")
			logger.Error("fatal publish failure, not retrying",
				"attempt", attempt.Attempts, "error", err)
			return nil, errors.New(err).
				Component("publisher").
				Category(errors.CategoryPublish).
				Context("attempts", attempt.Attempts).
				Context("terminal", "fatal").
				Build()
		}

		p.metrics.RecordPublishAttempt("transient_error")
		if attempt.Attempts >= p.maxAttempts {
			break
		}

		wait := p.backoff(attempt.Attempts, err)
		logger.Warn("transient publish failure, retrying",
			"attempt", attempt.Attempts,
			"max_attempts", p.maxAttempts,
			"wait", wait.String(),
			"error", err,
		)
		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			return nil, sleepErr
		}
	}

	return nil, errors.New(fmt.Errorf("retry budget exhausted after %d attempts: %w", attempt.Attempts, attempt.LastErr)).
		Component("publisher").
		Category(errors.CategoryPublish).
		Context("attempts", attempt.Attempts).
		Context("terminal", "exhausted").
		Build()
}

// attemptOnce performs one upload-and-post cycle under the outbound rate limiter.
func (p *Publisher) attemptOnce(ctx context.Context, text string, media []resolvedMedia) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	handles := make([]string, 0, len(media))
	for _, m := range media {
		handle, err := p.client.UploadMedia(ctx, m.data, m.mime)
		if err != nil {
			return "", err
		}
		handles = append(handles, handle)
	}

	return p.client.Post(ctx, text, handles)
}

// resolveMedia reads local paths and fetches remote URLs. Every reference must
// resolve before the post attempt proceeds.
func (p *Publisher) resolveMedia(ctx context.Context, refs []string) ([]resolvedMedia, error) {
	media := make([]resolvedMedia, 0, len(refs))
	for _, ref := range refs {
		var data []byte
		var err error
		if isRemoteRef(ref) {
			data, err = p.fetchRemote(ctx, ref)
		} else {
			data, err = os.ReadFile(ref)
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("resolving media %s: %w", ref, err)).
				Component("publisher").
				Category(errors.CategoryMedia).
				Context("media_ref", ref).
				Build()
		}
		media = append(media, resolvedMedia{ref: ref, data: data, mime: http.DetectContentType(data)})
	}
	return media, nil
}

func (p *Publisher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Debug("failed to close media response body", "error", closeErr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// backoff computes the exponential wait before the next attempt, using any
// server-supplied retry-after as a floor.
func (p *Publisher) backoff(attemptNumber int, err error) time.Duration {
	wait := p.backoffBase << (attemptNumber - 1)
	if p.backoffMax > 0 && wait > p.backoffMax {
		wait = p.backoffMax
	}

	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > wait {
		wait = rle.RetryAfter
	}
	return wait
}

// isFatal reports whether the error must not be retried: authentication and
// validation failures, but never rate limits.
func isFatal(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return false
	}
	return errors.HasCategory(err, errors.CategoryAuth) ||
		errors.HasCategory(err, errors.CategoryValidation)
}

func isRemoteRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
