package mediamirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

const (
	downloadTimeout = 30 * time.Second
	maxObjectSize   = 50 << 20
)

// ObjectStore is the part of the S3 API the mirror uses.
type ObjectStore interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Mirror copies Instagram media into an S3 bucket so galleries keep working
// after the CDN urls expire.
type Mirror struct {
	store      ObjectStore
	http       *http.Client
	bucket     string
	publicBase string
	log        *logger.Logger
}

// New builds a mirror from configuration. It returns nil, nil when mirroring
// is disabled.
func New(ctx context.Context, cfg config.MediaConfig, log *logger.Logger) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			// S3 compatible stores (MinIO, B2) want path-style urls
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", cfg.BucketName, err)
	}

	log.Info().Str("bucket", cfg.BucketName).Msg("media mirror enabled")
	return NewWithStore(client, cfg, log), nil
}

// NewWithStore wires a mirror around an existing object store.
func NewWithStore(store ObjectStore, cfg config.MediaConfig, log *logger.Logger) *Mirror {
	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region)
	}
	return &Mirror{
		store:      store,
		http:       &http.Client{Timeout: downloadTimeout},
		bucket:     cfg.BucketName,
		publicBase: publicBase,
		log:        log.Named("mediamirror"),
	}
}

// ObjectKey returns the bucket key of a post's media.
func ObjectKey(companyID, postID, ext string) string {
	return fmt.Sprintf("instagram/%s/%s%s", companyID, postID, ext)
}

// Copy downloads sourceURL and stores it under the post's key. Objects that
// already exist are not uploaded again. It returns the public url.
func (m *Mirror) Copy(ctx context.Context, companyID, postID, sourceURL string) (string, error) {
	ext := extension(sourceURL)
	key := ObjectKey(companyID, postID, ext)

	exists, err := m.exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return m.PublicURL(key), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectSize+1))
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	if len(body) > maxObjectSize {
		return "", fmt.Errorf("download media: object larger than %d bytes", maxObjectSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFor(ext)
	}

	_, err = m.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"company-id":    companyID,
			"post-id":       postID,
			"upload-source": "tochigi-content-sync",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	m.log.Debug().Str("key", key).Int("bytes", len(body)).Msg("media mirrored")
	return m.PublicURL(key), nil
}

// Delete removes a mirrored object. Missing objects are not an error.
func (m *Mirror) Delete(ctx context.Context, key string) error {
	_, err := m.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// PublicURL returns the url the object is served from.
func (m *Mirror) PublicURL(key string) string {
	return m.publicBase + "/" + key
}

func (m *Mirror) exists(ctx context.Context, key string) (bool, error) {
	_, err := m.store.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// extension guesses the file extension from the url path, ignoring the
// query string Instagram appends to CDN urls.
func extension(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".mp4", ".mov":
		return ext
	}
	return ".jpg"
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".mp4":
		return "video/mp4"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
