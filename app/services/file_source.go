package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoSourceFile means the tenant's drop directory holds nothing new to ingest.
var ErrNoSourceFile = errors.New("no source file available")

// FileSourceClient fetches the newest uploaded contact list for a tenant,
// authenticating with the tenant's vault-stored credentials.
type FileSourceClient interface {
	FetchLatest(ctx context.Context, creds RemoteCredentials, sourceDir string) (filename string, data []byte, err error)
}

type httpFileSourceClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPFileSourceClient creates a file source client against the drop service.
func NewHTTPFileSourceClient(baseURL string, timeout time.Duration) FileSourceClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpFileSourceClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *httpFileSourceClient) FetchLatest(ctx context.Context, creds RemoteCredentials, sourceDir string) (string, []byte, error) {
	base := c.BaseURL
	if creds.Host != "" {
		base = strings.TrimRight(creds.Host, "/")
	}
	endpoint := fmt.Sprintf("%s/%s/latest", base, url.PathEscape(sourceDir))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build file source request: %w", err)
	}
	if creds.Username != "" {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("file source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil, ErrNoSourceFile
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("file source returned status %d", resp.StatusCode)
	}

	// An empty file is a successful fetch; only 404 means there is nothing to
	// ingest. The normalizer decides what an empty file means.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read source file: %w", err)
	}

	return fileNameFromResponse(resp), data, nil
}

func fileNameFromResponse(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	if name := resp.Header.Get("X-File-Name"); name != "" {
		return name
	}
	return "contacts.csv"
}
