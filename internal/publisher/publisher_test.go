package publisher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
)

// fakeClient returns scripted errors for successive Post calls, then succeeds.
type fakeClient struct {
	postErrs    []error
	postCalls   int
	uploadCalls int
	uploadErr   error
	lastText    string
	lastHandles []string
}

func (f *fakeClient) UploadMedia(_ context.Context, _ []byte, _ string) (string, error) {
	f.uploadCalls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return fmt.Sprintf("media-%d", f.uploadCalls), nil
}

func (f *fakeClient) Post(_ context.Context, text string, mediaHandles []string) (string, error) {
	f.postCalls++
	f.lastText = text
	f.lastHandles = mediaHandles
	if f.postCalls <= len(f.postErrs) {
		return "", f.postErrs[f.postCalls-1]
	}
	return "post-123", nil
}

func newTestPublisher(t *testing.T, client Client, maxAttempts int) (*Publisher, *[]time.Duration) {
	t.Helper()
	pub := New(client, conf.PublishSettings{
		MaxAttempts:        maxAttempts,
		BackoffBaseSeconds: 1,
		BackoffMaxSeconds:  60,
		RatePerMinute:      6000, // effectively unthrottled in tests
	}, nil)

	waits := &[]time.Duration{}
	pub.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return pub, waits
}

func transientErr() error {
	return errors.Newf("upstream hiccup").
		Component("twitter").
		Category(errors.CategoryNetwork).
		Build()
}

func TestPublish_FirstAttemptSucceeds(t *testing.T) {
	client := &fakeClient{}
	pub, waits := newTestPublisher(t, client, 4)

	result, err := pub.Publish(context.Background(), "hello", nil)

	require.NoError(t, err)
	assert.Equal(t, "post-123", result.PostID)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, *waits)
	assert.Equal(t, "hello", client.lastText)
}

func TestPublish_TransientFailuresRetryThenSucceed(t *testing.T) {
	client := &fakeClient{postErrs: []error{transientErr(), transientErr(), transientErr()}}
	pub, waits := newTestPublisher(t, client, 4)

	result, err := pub.Publish(context.Background(), "hello", nil)

	require.NoError(t, err)
	assert.Equal(t, 4, result.Attempts)
	assert.Equal(t, 4, client.postCalls)

	// Exponential backoff: 1s, 2s, 4s.
	require.Len(t, *waits, 3)
	assert.Equal(t, 1*time.Second, (*waits)[0])
	assert.Equal(t, 2*time.Second, (*waits)[1])
	assert.Equal(t, 4*time.Second, (*waits)[2])
}

func TestPublish_ExhaustedAttempts(t *testing.T) {
	client := &fakeClient{postErrs: []error{transientErr(), transientErr(), transientErr()}}
	pub, _ := newTestPublisher(t, client, 3)

	result, err := pub.Publish(context.Background(), "hello", nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 3, client.postCalls)
	assert.True(t, errors.HasCategory(err, errors.CategoryPublish))
}

func TestPublish_AuthFailureIsFatal(t *testing.T) {
	authErr := errors.Newf("bad credentials").
		Component("twitter").
		Category(errors.CategoryAuth).
		Build()
	client := &fakeClient{postErrs: []error{authErr, authErr, authErr}}
	pub, waits := newTestPublisher(t, client, 4)

	result, err := pub.Publish(context.Background(), "hello", nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, client.postCalls)
	assert.Empty(t, *waits)
}

func TestPublish_ValidationFailureIsFatal(t *testing.T) {
	valErr := errors.Newf("text too long").
		Component("twitter").
		Category(errors.CategoryValidation).
		Build()
	client := &fakeClient{postErrs: []error{valErr}}
	pub, _ := newTestPublisher(t, client, 4)

	_, err := pub.Publish(context.Background(), "hello", nil)

	require.Error(t, err)
	assert.Equal(t, 1, client.postCalls)
}

func TestPublish_RateLimitRetriesWithRetryAfterFloor(t *testing.T) {
	rle := errors.New(&RateLimitError{RetryAfter: 30 * time.Second}).
		Component("twitter").
		Category(errors.CategoryRateLimit).
		Build()
	client := &fakeClient{postErrs: []error{rle}}
	pub, waits := newTestPublisher(t, client, 4)

	result, err := pub.Publish(context.Background(), "hello", nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)

	// The server-supplied wait overrides the shorter exponential step.
	require.Len(t, *waits, 1)
	assert.Equal(t, 30*time.Second, (*waits)[0])
}

func TestPublish_RateLimitNeverFatal(t *testing.T) {
	rle := errors.New(&RateLimitError{}).
		Component("twitter").
		Category(errors.CategoryRateLimit).
		Build()
	assert.False(t, isFatal(rle))
}

func TestPublish_MediaUploadedBeforePost(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "chart.png")
	require.NoError(t, os.WriteFile(mediaPath, []byte("\x89PNG\r\n\x1a\nfake"), 0o644))

	client := &fakeClient{}
	pub, _ := newTestPublisher(t, client, 4)

	result, err := pub.Publish(context.Background(), "hello", []string{mediaPath})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, client.uploadCalls)
	assert.Equal(t, []string{"media-1"}, client.lastHandles)
}

func TestPublish_MediaResolutionFailureIsFatal(t *testing.T) {
	client := &fakeClient{}
	pub, _ := newTestPublisher(t, client, 4)

	result, err := pub.Publish(context.Background(), "hello", []string{"/does/not/exist.png"})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, client.postCalls)
	assert.True(t, errors.HasCategory(err, errors.CategoryMedia))
}

func TestPublish_UploadFailureRetries(t *testing.T) {
	client := &fakeClient{uploadErr: transientErr()}
	pub, _ := newTestPublisher(t, client, 2)

	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "chart.png")
	require.NoError(t, os.WriteFile(mediaPath, []byte("fake"), 0o644))

	_, err := pub.Publish(context.Background(), "hello", []string{mediaPath})

	require.Error(t, err)
	assert.Equal(t, 2, client.uploadCalls)
	assert.Equal(t, 0, client.postCalls)
}

func TestBackoff_CappedAtMax(t *testing.T) {
	pub := New(&fakeClient{}, conf.PublishSettings{
		MaxAttempts:        10,
		BackoffBaseSeconds: 10,
		BackoffMaxSeconds:  30,
		RatePerMinute:      6000,
	}, nil)

	assert.Equal(t, 10*time.Second, pub.backoff(1, transientErr()))
	assert.Equal(t, 20*time.Second, pub.backoff(2, transientErr()))
	assert.Equal(t, 30*time.Second, pub.backoff(3, transientErr()))
	assert.Equal(t, 30*time.Second, pub.backoff(6, transientErr()))
}
