// Package upload posts generated ontologies to a content-management
// service and returns the stored asset.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// ErrUpload wraps every failure of Upload.
var ErrUpload = errors.New("upload failed")

// Asset is the stored file as reported by the service.
type Asset struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type assetResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	CDNURL string `json:"cdnUrl"`
}

// Upload sends body as the multipart "file" field together with an empty
// "fileName" field, authenticated with the bearer token.
func (c *Client) Upload(ctx context.Context, body io.Reader, filename, contentType, token string) (*Asset, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("%w: creating file part: %w", ErrUpload, err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("%w: writing file part: %w", ErrUpload, err)
	}
	if err := form.WriteField("fileName", ""); err != nil {
		return nil, fmt.Errorf("%w: writing fileName: %w", ErrUpload, err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing form: %w", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: unexpected status %s: %s", ErrUpload, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var decoded assetResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrUpload, err)
	}

	asset := &Asset{ID: decoded.ID, URL: decoded.URL}
	if asset.URL == "" {
		asset.URL = decoded.CDNURL
	}
	c.logger.Info("asset uploaded", "id", asset.ID, "url", asset.URL, "filename", filename)
	return asset, nil
}
