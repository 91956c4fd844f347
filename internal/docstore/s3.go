package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/dmitrijs2005/pbx/internal/logging"
	"github.com/dmitrijs2005/pbx/internal/pathmatch"
)

const s3Scheme = "s3://"

// S3API is the part of the S3 client used by S3Store.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config selects the bucket endpoint and credentials. Empty keys fall back
// to the default AWS credential chain.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds an S3 client. A custom endpoint switches to path-style
// addressing, as MinIO and most S3-compatible servers expect.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Store serves documents addressed as s3://bucket/key.
type S3Store struct {
	client S3API
}

func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client}
}

// IsS3 reports whether path addresses an S3 object.
func IsS3(path string) bool {
	return strings.HasPrefix(path, s3Scheme)
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(u string) (bucket, key string, err error) {
	if !IsS3(u) {
		return "", "", fmt.Errorf("not an s3 url: %q", u)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(u, s3Scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 url %q has no bucket", u)
	}
	return bucket, key, nil
}

func (s *S3Store) Find(ctx context.Context, pattern string, recursive bool, log logging.Logger) ([]pathmatch.Match, error) {
	bucket, keyPattern, err := ParseS3URL(pattern)
	if err != nil {
		return nil, err
	}
	p, err := pathmatch.Compile(keyPattern)
	if err != nil {
		return nil, err
	}

	prefix := ""
	if root := strings.TrimPrefix(p.Root(), "/"); root != "." && root != "" {
		prefix = root + "/"
	}

	matches := []pathmatch.Match{}
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			if vars, ok := p.MatchKey(key, recursive); ok {
				matches = append(matches, pathmatch.Match{Path: s3Scheme + bucket + "/" + key, Vars: vars})
			}
		}
	}

	if log != nil {
		log.Debug(ctx, "listed s3 documents", "bucket", bucket, "prefix", prefix, "matches", len(matches))
	}
	return matches, nil
}

func (s *S3Store) ReadFile(ctx context.Context, path string) ([]byte, error) {
	bucket, key, err := ParseS3URL(path)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingFile, path)
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
