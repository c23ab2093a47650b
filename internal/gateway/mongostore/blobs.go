package mongostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrolease/agrolease-backend/internal/gateway"
)

// Blobs keeps images in a GridFS bucket keyed by their path. GridFS objects
// are not publicly addressable, so URLs point at the API blob route.
type Blobs struct {
	db        *mongo.Database
	bucket    string
	urlPrefix string
}

func NewBlobs(db *mongo.Database, bucket, urlPrefix string) *Blobs {
	if bucket == "" {
		bucket = options.DefaultName
	}
	return &Blobs{db: db, bucket: bucket, urlPrefix: urlPrefix}
}

func (b *Blobs) open(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(b.db, options.GridFSBucket().SetName(b.bucket))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

func (b *Blobs) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("blob path is required")
	}
	bucket, err := b.open(ctx)
	if err != nil {
		return "", fmt.Errorf("opening gridfs bucket: %w", err)
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := bucket.UploadFromStream(path, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("uploading %s: %w", path, err)
	}
	return b.urlPrefix + (&url.URL{Path: path}).EscapedPath(), nil
}

func (b *Blobs) Delete(ctx context.Context, path string) error {
	bucket, err := b.open(ctx)
	if err != nil {
		return fmt.Errorf("opening gridfs bucket: %w", err)
	}
	cursor, err := bucket.Find(bson.M{"filename": path})
	if err != nil {
		return fmt.Errorf("finding %s: %w", path, err)
	}
	var files []gridfs.File
	if err := cursor.All(ctx, &files); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(files) == 0 {
		return gateway.ErrNotFound
	}
	for _, f := range files {
		if err := bucket.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("deleting %s: %w", path, err)
		}
	}
	return nil
}

func (b *Blobs) Open(ctx context.Context, path string) ([]byte, string, error) {
	bucket, err := b.open(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("opening gridfs bucket: %w", err)
	}
	stream, err := bucket.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", gateway.ErrNotFound
		}
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	contentType := "application/octet-stream"
	if meta := stream.GetFile().Metadata; meta != nil {
		if v, err := meta.LookupErr("contentType"); err == nil {
			if s, ok := v.StringValueOK(); ok && s != "" {
				contentType = s
			}
		}
	}
	return data, contentType, nil
}
