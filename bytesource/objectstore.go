package bytesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

type objectStoreSource struct {
	spec    Specifier
	timeout int64
}

func newObjectStoreSource(spec Specifier, opts Options) *objectStoreSource {
	s := &objectStoreSource{spec: spec, timeout: int64(defaultReadTimeout)}
	if opts.ReadTimeout > 0 {
		s.timeout = opts.ReadTimeout
	}
	return s
}

// client builds an S3 client using the standard SDK credential/region
// discovery chain (environment variables, shared config/credentials files,
// EC2/ECS instance roles, SSO). The core never parses credentials itself; it
// defers entirely to this chain, per the external interface's design.
func (s *objectStoreSource) client(ctx context.Context) (*s3.Client, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if s.spec.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(s.spec.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, xerr.Wrap(xerr.Auth, "loading AWS config", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *objectStoreSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.spec.Bucket),
		Key:    aws.String(s.spec.Key),
	})
	if err != nil {
		return nil, classifyS3Error(s.spec, err)
	}
	return &timeoutReadCloser{rc: out.Body, timeout: time.Duration(s.timeout)}, nil
}

func (s *objectStoreSource) Metadata(ctx context.Context) (Metadata, error) {
	client, err := s.client(ctx)
	if err != nil {
		return Metadata{}, err
	}
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.spec.Bucket),
		Key:    aws.String(s.spec.Key),
	})
	if err != nil {
		return Metadata{}, classifyS3Error(s.spec, err)
	}
	md := Metadata{OriginKind: KindObjectStore}
	if out.ContentLength != nil {
		md.Size = out.ContentLength
	}
	if out.ContentType != nil {
		md.ContentType = *out.ContentType
	}
	return md, nil
}

func classifyS3Error(spec Specifier, err error) error {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsk) || errors.As(err, &nsb) {
		return xerr.Wrap(xerr.NotFound, fmt.Sprintf("s3://%s/%s", spec.Bucket, spec.Key), err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return xerr.Wrap(xerr.Auth, fmt.Sprintf("s3://%s/%s", spec.Bucket, spec.Key), err)
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return xerr.Wrap(xerr.NotFound, fmt.Sprintf("s3://%s/%s", spec.Bucket, spec.Key), err)
		}
	}
	return xerr.Wrap(xerr.Network, fmt.Sprintf("s3://%s/%s", spec.Bucket, spec.Key), err)
}
