package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

const (
	pingTimeout  = 5 * time.Second
	cacheControl = "public, max-age=86400"
)

// Client stores listing images as publicly readable objects in one bucket.
type Client struct {
	svc        *storage.Service
	bucket     string
	publicBase string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient authenticates with explicit credentials when configured and
// falls back to application default credentials.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadWriteScope)}
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	opts = append(opts, extra...)

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	client := &Client{
		svc:        svc,
		bucket:     cfg.BucketName,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	if client.publicBase == "" {
		client.publicBase = "https://storage.googleapis.com"
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}

	return client, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.svc.Buckets.Get(c.bucket).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs bucket check: %w", err)
	}
	return nil
}

// Upload writes the object and returns its public URL.
func (c *Client) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if path == "" {
		return "", errors.New("object path is required")
	}
	obj := &storage.Object{
		Name:         path,
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	_, err := c.svc.Objects.Insert(c.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", path, err)
	}
	return c.PublicURL(path), nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	err := c.svc.Objects.Delete(c.bucket, path).Context(ctx).Do()
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return gateway.ErrNotFound
	}
	return fmt.Errorf("deleting %s: %w", path, err)
}

// PublicURL is the storage.googleapis.com address of an object.
func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicBase, url.PathEscape(c.bucket), (&url.URL{Path: path}).EscapedPath())
}
