package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Schema of one hashed audience row, in upload order.
var syncSchema = []string{"EMAIL", "PHONE", "FN", "LN"}

// SyncRecord is one audience member in wire form. Every field is a lowercase
// hex SHA-256 digest of the normalized value, or empty when the source field
// is absent.
type SyncRecord struct {
	EmailHash     string
	PhoneHash     string
	FirstNameHash string
	LastNameHash  string
}

func (r SyncRecord) row() []string {
	return []string{r.EmailHash, r.PhoneHash, r.FirstNameHash, r.LastNameHash}
}

// AudienceClient uploads and removes hashed members of a remote custom audience.
type AudienceClient interface {
	UploadBatch(ctx context.Context, accessToken, audienceID string, records []SyncRecord) error
	RemoveBatch(ctx context.Context, accessToken, audienceID string, records []SyncRecord) error
}

// RemoteError is a structured error returned by the audience platform.
type RemoteError struct {
	Code      int
	Subcode   int
	Message   string
	Transient bool
}

func (e *RemoteError) Error() string {
	if e.Subcode != 0 {
		return fmt.Sprintf("remote error %d (subcode %d): %s", e.Code, e.Subcode, e.Message)
	}
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Platform error codes that signal throttling rather than a broken request.
var rateLimitCodes = map[int]bool{4: true, 17: true, 32: true, 613: true}

// IsRateLimited reports whether err is a throttling response worth retrying
// after a backoff.
func IsRateLimited(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	return rateLimitCodes[re.Code] || re.Transient
}

// ErrorMessage extracts a human-readable description from a sync error,
// preferring the platform's own message when present.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}

// httpAudienceClient talks to the audience platform's Graph-style HTTP API.
type httpAudienceClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPAudienceClient creates an audience client against the given API root.
func NewHTTPAudienceClient(baseURL string, timeout time.Duration) AudienceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpAudienceClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type audiencePayload struct {
	Schema []string   `json:"schema"`
	Data   [][]string `json:"data"`
}

type audienceRequest struct {
	Payload audiencePayload `json:"payload"`
}

type audienceErrorResponse struct {
	Error *struct {
		Message     string `json:"message"`
		Code        int    `json:"code"`
		Subcode     int    `json:"error_subcode"`
		IsTransient bool   `json:"is_transient"`
	} `json:"error"`
}

func (c *httpAudienceClient) UploadBatch(ctx context.Context, accessToken, audienceID string, records []SyncRecord) error {
	return c.send(ctx, http.MethodPost, accessToken, audienceID, records)
}

func (c *httpAudienceClient) RemoveBatch(ctx context.Context, accessToken, audienceID string, records []SyncRecord) error {
	return c.send(ctx, http.MethodDelete, accessToken, audienceID, records)
}

func (c *httpAudienceClient) send(ctx context.Context, method, accessToken, audienceID string, records []SyncRecord) error {
	if len(records) == 0 {
		return nil
	}

	data := make([][]string, 0, len(records))
	for _, r := range records {
		data = append(data, r.row())
	}
	body, err := json.Marshal(audienceRequest{Payload: audiencePayload{Schema: syncSchema, Data: data}})
	if err != nil {
		return fmt.Errorf("failed to encode audience payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/users?access_token=%s", c.BaseURL, url.PathEscape(audienceID), url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build audience request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("audience request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var er audienceErrorResponse
	if jsonErr := json.Unmarshal(raw, &er); jsonErr == nil && er.Error != nil {
		return &RemoteError{
			Code:      er.Error.Code,
			Subcode:   er.Error.Subcode,
			Message:   er.Error.Message,
			Transient: er.Error.IsTransient,
		}
	}
	return fmt.Errorf("audience request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
