// Package objectstore adapts a single S3-compatible bucket into the
// gateway's session-backup path. It generalizes the per-user S3 client
// cache the browser-automation reference code kept into a single client
// bound to one bucket, keyed by session id rather than user id.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/logger"
)

// ErrDisabled is returned by Put, Get, List and DeletePrefix when the
// adapter is configured with Enabled=false; EnsureBucket returns nil in that
// case. The Session Storage Service checks Enabled first and treats a
// disabled store as "no durable backup available" rather than a failure.
var ErrDisabled = fmt.Errorf("object store is disabled")

// Store is the Object Store Adapter: a thin, opaque wrapper over an
// S3-compatible bucket that the Session Storage Service uses to persist and
// restore a session's auth directory.
type Store struct {
	client *s3.Client
	cfg    config.ObjectStoreConfig
	logger *logger.ComponentLogger
}

func New(cfg config.ObjectStoreConfig) (*Store, error) {
	st := &Store{cfg: cfg, logger: logger.ForComponent("objectstore")}
	if !cfg.Enabled {
		return st, nil
	}

	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		),
	}

	if cfg.Endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: cfg.PathStyle}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			},
		)
	}

	st.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
	})

	st.logger.Info().Str("bucket", cfg.Bucket).Msg("object store client initialized")
	return st, nil
}

// Key builds the object key for a file under a session's auth directory,
// mirroring the local filesystem's relative path.
func Key(sessionID, relPath string) string {
	relPath = strings.TrimPrefix(relPath, "/")
	return fmt.Sprintf("sessions/%s/%s", sessionID, relPath)
}

func (s *Store) Enabled() bool {
	return s.cfg.Enabled
}

// EnsureBucket verifies the configured bucket exists, creating it when it
// doesn't. Called once at startup so a fresh deployment against an empty
// S3-compatible endpoint provisions its own bucket instead of having every
// later List/Get silently fail against a bucket that was never created.
func (s *Store) EnsureBucket(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("object store head bucket %s: %w", s.cfg.Bucket, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)}
	if s.cfg.Region != "" && s.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.cfg.Region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("object store create bucket %s: %w", s.cfg.Bucket, err)
	}
	s.logger.Info().Str("bucket", s.cfg.Bucket).Msg("object store bucket created")
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}

// Put uploads data as a single object. Callers are responsible for keeping
// individual files under the configured MaxObjectSizeMiB; the Session
// Storage Service enforces this before calling in.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if !s.cfg.Enabled {
		return ErrDisabled
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("object store put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("object store get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("object store read %s: %w", key, err)
	}
	return data, nil
}

// List returns every object key under the given prefix, paging through
// continuation tokens as the reference client-cache implementation does.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.cfg.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("object store list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	return keys, nil
}

// DeletePrefix removes every object under prefix, batching deletes in
// groups of 1000 per the S3 DeleteObjects limit.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if !s.cfg.Enabled {
		return ErrDisabled
	}
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for i := 0; i < len(keys); i += 1000 {
		end := i + 1000
		if end > len(keys) {
			end = len(keys)
		}
		objs := make([]types.ObjectIdentifier, 0, end-i)
		for _, k := range keys[i:end] {
			objs = append(objs, types.ObjectIdentifier{Key: aws.String(k)})
		}
		if len(objs) == 0 {
			continue
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.cfg.Bucket),
			Delete: &types.Delete{Objects: objs},
		})
		if err != nil {
			return fmt.Errorf("object store delete prefix %s: %w", prefix, err)
		}
	}
	s.logger.Info().Str("prefix", prefix).Int("count", len(keys)).Msg("deleted objects")
	return nil
}
