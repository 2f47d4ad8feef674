// Package media wraps the photo storage HTTP endpoint used to move
// locally-referenced baby photos into remote storage.
package media

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/AndreasArnolfo/Babyrons/internal/config"
)

// Client exposes the upload operation used by the photo migration pass.
type Client interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a media upload client from the provided configuration.
func NewClient(cfg config.MediaConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(cfg.UploadURL).
		SetTimeout(30 * time.Second)
	if cfg.Token != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token))
	}
	return &APIClient{httpClient: restyClient}
}

// uploadResponse mirrors the storage endpoint's success payload.
type uploadResponse struct {
	URL string `json:"url"`
}

// Upload sends the file at localPath and returns its public URL.
func (c *APIClient) Upload(ctx context.Context, localPath string) (string, error) {
	var result uploadResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFile("photo", localPath).
		SetFormData(map[string]string{"filename": filepath.Base(localPath)}).
		SetResult(&result).
		Post("")
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", localPath, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload %s: status %s", localPath, resp.Status())
	}
	if result.URL == "" {
		return "", fmt.Errorf("upload %s: empty url in response", localPath)
	}
	return result.URL, nil
}
