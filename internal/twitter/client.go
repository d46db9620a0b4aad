// Package twitter implements the posting client contract against the Twitter/X API:
// media upload through the v1.1-style endpoint, tweet creation through the v2-style
// endpoint. The HTTP client is pre-authenticated via oauth2; wxpost never runs an
// OAuth flow itself.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
	"github.com/avikko/wxpost/internal/logging"
	"github.com/avikko/wxpost/internal/publisher"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelInfo)
	logger, _, err = logging.NewFileLogger("logs/twitter.log", "twitter", serviceLevelVar)
	if err != nil {
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "twitter")
	}
}

// Client posts to the platform through an authenticated *http.Client.
type Client struct {
	httpClient *http.Client
	uploadURL  string
	postURL    string
}

// uploadResponse is the v1.1 media upload response.
type uploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// postRequest is the v2 tweet creation payload.
type postRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
}

// postResponse is the v2 tweet creation response.
type postResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// New creates a Client from settings. The access token is expected to be
// pre-authorized for both endpoints.
func New(settings conf.TwitterSettings) (*Client, error) {
	if settings.AccessToken == "" {
		return nil, errors.Newf("twitter access token not configured").
			Component("twitter").
			Category(errors.CategoryConfiguration).
			Build()
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: settings.AccessToken})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		httpClient: httpClient,
		uploadURL:  settings.UploadURL,
		postURL:    settings.PostURL,
	}, nil
}

// UploadMedia uploads one media item and returns its platform handle.
func (c *Client) UploadMedia(ctx context.Context, data []byte, mime string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return "", newClientError(err, errors.CategoryNetwork, "create_multipart")
	}
	if _, err := part.Write(data); err != nil {
		return "", newClientError(err, errors.CategoryNetwork, "write_multipart")
	}
	if err := writer.Close(); err != nil {
		return "", newClientError(err, errors.CategoryNetwork, "close_multipart")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", newClientError(err, errors.CategoryNetwork, "create_upload_request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := c.do(req, "upload_media")
	if err != nil {
		return "", err
	}

	var upload uploadResponse
	if err := json.Unmarshal(respBody, &upload); err != nil {
		return "", newClientError(err, errors.CategoryValidation, "unmarshal_upload_response")
	}
	if upload.MediaIDString == "" {
		return "", newClientError(fmt.Errorf("upload response missing media id"), errors.CategoryValidation, "validate_upload_response")
	}

	logger.Debug("media uploaded", "media_id", upload.MediaIDString, "bytes", len(data), "mime", mime)
	return upload.MediaIDString, nil
}

// Post submits the tweet and returns the platform post identifier.
func (c *Client) Post(ctx context.Context, text string, mediaHandles []string) (string, error) {
	payload := postRequest{Text: text}
	if len(mediaHandles) > 0 {
		payload.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: mediaHandles}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", newClientError(err, errors.CategoryValidation, "marshal_post_request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postURL, bytes.NewReader(encoded))
	if err != nil {
		return "", newClientError(err, errors.CategoryNetwork, "create_post_request")
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req, "create_post")
	if err != nil {
		return "", err
	}

	var created postResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", newClientError(err, errors.CategoryValidation, "unmarshal_post_response")
	}
	if created.Data.ID == "" {
		return "", newClientError(fmt.Errorf("post response missing id"), errors.CategoryValidation, "validate_post_response")
	}

	logger.Info("post created", "post_id", created.Data.ID, "media_count", len(mediaHandles))
	return created.Data.ID, nil
}

// do executes the request and maps status codes onto the failure taxonomy the
// publisher retry loop distinguishes: rate limits carry the server's retry-after,
// other 4xx are fatal, 5xx and transport errors are transient.
func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, newClientError(err, errors.CategoryTimeout, operation)
		}
		return nil, newClientError(err, errors.CategoryNetwork, operation)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newClientError(err, errors.CategoryNetwork, operation)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.New(&publisher.RateLimitError{RetryAfter: retryAfter(resp)}).
			Component("twitter").
			Category(errors.CategoryRateLimit).
			Context("operation", operation).
			Context("status_code", resp.StatusCode).
			Build()
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.New(fmt.Errorf("authentication failed (%d): %s", resp.StatusCode, truncate(body))).
			Component("twitter").
			Category(errors.CategoryAuth).
			Context("operation", operation).
			Context("status_code", resp.StatusCode).
			Build()
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, errors.New(fmt.Errorf("request rejected (%d): %s", resp.StatusCode, truncate(body))).
			Component("twitter").
			Category(errors.CategoryValidation).
			Context("operation", operation).
			Context("status_code", resp.StatusCode).
			Build()
	default:
		return nil, errors.New(fmt.Errorf("server error (%d)", resp.StatusCode)).
			Component("twitter").
			Category(errors.CategoryNetwork).
			Context("operation", operation).
			Context("status_code", resp.StatusCode).
			Build()
	}
}

// retryAfter parses the Retry-After header as delay seconds.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func truncate(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		return string(body[:maxLen]) + "... (truncated)"
	}
	return string(body)
}

func newClientError(err error, category errors.ErrorCategory, operation string) error {
	return errors.New(err).
		Component("twitter").
		Category(category).
		Context("operation", operation).
		Build()
}
