// Package store provides the R2 object storage adapter behind the
// RemoteStorePort.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
)

// R2Store implements ports.RemoteStorePort against Cloudflare R2, or any
// S3-compatible service reachable through a custom endpoint.
type R2Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	configured bool
}

// NewR2Store creates a store adapter from the remote configuration. When the
// configuration is incomplete the adapter is still returned, but reports
// IsConfigured() == false and refuses every operation.
func NewR2Store(ctx context.Context, cfg config.RemoteConfig) (*R2Store, error) {
	if !cfg.Configured() {
		return &R2Store{configured: false}, nil
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	opts = append(opts, awsconfig.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &R2Store{
		client:     s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:     cfg.Bucket,
		prefix:     prefix,
		configured: true,
	}, nil
}

// IsConfigured reports whether the adapter has usable credentials.
func (s *R2Store) IsConfigured() bool {
	return s.configured
}

// Put writes a blob under the given key.
func (s *R2Store) Put(ctx context.Context, key string, data []byte) error {
	if !s.configured {
		return errors.New("remote store is not configured")
	}

	fullKey := s.prefix + key
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("R2 put object failed: %w", err)
	}
	return nil
}

// Get reads a blob. A missing key is found=false with a nil error.
func (s *R2Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.configured {
		return nil, false, errors.New("remote store is not configured")
	}

	fullKey := s.prefix + key
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("R2 get object failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("R2 read body failed: %w", err)
	}
	return data, true, nil
}

// List returns the objects under the given key prefix, with the adapter's
// own prefix stripped off.
func (s *R2Store) List(ctx context.Context, prefix string) ([]ports.ObjectInfo, error) {
	if !s.configured {
		return nil, errors.New("remote store is not configured")
	}

	fullPrefix := s.prefix + prefix
	var infos []ports.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("R2 list objects failed: %w", err)
		}
		for _, obj := range page.Contents {
			info := ports.ObjectInfo{
				Key: strings.TrimPrefix(aws.ToString(obj.Key), s.prefix),
			}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.Uploaded = obj.LastModified.UTC()
			}
			infos = append(infos, info)
		}
	}

	return infos, nil
}

// Exists reports whether a key is present without fetching its body.
func (s *R2Store) Exists(ctx context.Context, key string) (bool, error) {
	if !s.configured {
		return false, errors.New("remote store is not configured")
	}

	fullKey := s.prefix + key
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("R2 head object failed: %w", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}
