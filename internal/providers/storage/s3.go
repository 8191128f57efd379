package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cablebill/cablebill/internal/config"
	"github.com/cablebill/cablebill/internal/errs"
)

type S3Provider struct {
	client        *s3.Client
	bucket        string
	region        string
	endpoint      string
	pathStyle     bool
	publicBaseURL string
}

func NewS3Provider(ctx context.Context, cfg config.StorageConfig) (*S3Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		// static keys for MinIO or explicit IAM users
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Provider{
		client:        client,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		pathStyle:     cfg.UsePathStyle,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

func (p *S3Provider) Put(ctx context.Context, key, contentType string, body io.Reader) (Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return Object{}, errs.Unavailable(fmt.Errorf("s3 put %s: %w", key, err))
	}

	return Object{
		Key:         key,
		URL:         p.ObjectURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errs.Unavailable(fmt.Errorf("s3 delete %s: %w", key, err))
	}
	return nil
}

// ObjectURL returns the address clients use to fetch key.
func (p *S3Provider) ObjectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case p.publicBaseURL != "":
		return p.publicBaseURL + "/" + escaped
	case p.endpoint != "" && p.pathStyle:
		return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, escaped)
	case p.endpoint != "":
		return fmt.Sprintf("%s/%s", p.endpoint, escaped)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, escaped)
	}
}
