package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultS3Prefix = "melbridge/snapshots"

// S3Config locates the mirror bucket. Credentials are read from files so
// they never appear in config.yaml.
type S3Config struct {
	Endpoint      string
	Bucket        string
	Prefix        string
	Region        string
	AccessKeyFile string
	SecretKeyFile string
}

// S3Store keeps blobs as JSON objects under a bucket prefix.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Store creates an object-store client. No request is made until the
// first Put or Get.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	if endpoint == "" || bucket == "" || cfg.AccessKeyFile == "" || cfg.SecretKeyFile == "" {
		return nil, fmt.Errorf("s3 mirror: endpoint, bucket and key files are required")
	}

	accessKey, err := readSecretFile(cfg.AccessKeyFile)
	if err != nil {
		return nil, fmt.Errorf("s3 mirror: reading access key: %w", err)
	}
	secretKey, err := readSecretFile(cfg.SecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("s3 mirror: reading secret key: %w", err)
	}

	host, secure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 mirror: creating client: %w", err)
	}

	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix == "" {
		prefix = defaultS3Prefix
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads the blob for key.
func (s *S3Store) Put(ctx context.Context, key string, blob []byte) error {
	r := bytes.NewReader(blob)
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key), r, int64(r.Len()), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("s3 mirror: uploading %s: %w", key, s.wrapError(err))
	}
	return nil
}

// Get downloads the blob for key, or ErrNotFound.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		return nil, s.wrapError(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("s3 mirror: reading %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) objectName(key string) string {
	return path.Join(s.prefix, key+".json")
}

func (s *S3Store) wrapError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}

// parseEndpoint accepts "host:port" (TLS) or a full http(s) URL.
func parseEndpoint(raw string) (host string, secure bool, err error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw, true, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("s3 mirror: parsing endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("s3 mirror: invalid endpoint %q", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

func readSecretFile(name string) (string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
