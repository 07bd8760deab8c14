package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures an S3-compatible backend.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	// PublicURL is the externally reachable base URL; defaults to the endpoint.
	PublicURL string
	// PublicRead installs an anonymous read policy on the bucket.
	PublicRead bool
}

// MinioProvider stores files in an S3-compatible bucket. Categories become key
// prefixes (auto/, raw/), so a file is only found under the category it was stored with.
type MinioProvider struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewMinioProvider connects to the endpoint and makes sure the bucket exists.
func NewMinioProvider(ctx context.Context, opts MinioOptions, logger *slog.Logger) (*MinioProvider, error) {
	endpoint, secure, err := normaliseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("minio endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", opts.Bucket, err)
		}
		logger.Info("created storage bucket", slog.String("bucket", opts.Bucket))
	}
	if opts.PublicRead {
		if err := client.SetBucketPolicy(ctx, opts.Bucket, publicReadPolicy(opts.Bucket)); err != nil {
			return nil, fmt.Errorf("setting public policy on %s: %w", opts.Bucket, err)
		}
	}

	baseURL := opts.PublicURL
	if baseURL == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		baseURL = scheme + "://" + endpoint
	}

	return &MinioProvider{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

func (p *MinioProvider) Upload(ctx context.Context, r io.Reader, params UploadParams) (*UploadResult, error) {
	publicID := objectPath(params.Folder, params.PublicID)
	if !validPublicID(publicID) {
		return nil, fmt.Errorf("invalid public id %q", publicID)
	}
	category := bucketCategory(params.ResourceType)

	size := params.Size
	if size <= 0 {
		size = -1
	}
	info, err := p.client.PutObject(ctx, p.bucket, objectKey(category, publicID), r, size, minio.PutObjectOptions{
		ContentType: params.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("putting %s: %w", publicID, err)
	}

	secureURL, err := p.URL(publicID, URLOptions{ResourceType: category, Secure: true})
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		PublicID:     publicID,
		SecureURL:    secureURL,
		Format:       formatOf(publicID),
		ResourceType: category,
		Bytes:        info.Size,
	}, nil
}

func (p *MinioProvider) Destroy(ctx context.Context, publicID string, rt ResourceType) (*DestroyResult, error) {
	key := objectKey(bucketCategory(rt), publicID)
	if _, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return &DestroyResult{Result: ResultNotFound}, nil
		}
		return nil, fmt.Errorf("checking %s: %w", key, err)
	}
	if err := p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return nil, fmt.Errorf("removing %s: %w", key, err)
	}
	return &DestroyResult{Result: ResultOK}, nil
}

func (p *MinioProvider) Resource(ctx context.Context, publicID string, rt ResourceType) (*Asset, error) {
	category := bucketCategory(rt)
	key := objectKey(category, publicID)
	info, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, publicID, category)
		}
		return nil, fmt.Errorf("checking %s: %w", key, err)
	}

	secureURL, err := p.URL(publicID, URLOptions{ResourceType: category, Secure: true})
	if err != nil {
		return nil, err
	}
	return &Asset{
		PublicID:     publicID,
		SecureURL:    secureURL,
		Format:       formatOf(publicID),
		ResourceType: category,
		Bytes:        info.Size,
		CreatedAt:    info.LastModified.UTC(),
	}, nil
}

// URL returns the path-style public object URL. Anonymous S3 reads cannot override
// Content-Disposition, so Flags and Secure are left to the configured public URL.
func (p *MinioProvider) URL(publicID string, opts URLOptions) (string, error) {
	if !validPublicID(publicID) {
		return "", fmt.Errorf("invalid public id %q", publicID)
	}
	return p.baseURL + "/" + p.bucket + "/" + objectKey(bucketCategory(opts.ResourceType), publicID), nil
}

func (p *MinioProvider) Ping(ctx context.Context) error {
	ok, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("pinging minio: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", p.bucket)
	}
	return nil
}

func objectKey(category ResourceType, publicID string) string {
	return string(category) + "/" + publicID
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// normaliseEndpoint accepts either "minio:9000" or "http(s)://minio:9000".
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	return raw, false, nil
}
