// Package dataset reads the edge and node tables of a social graph from
// local files or S3 and loads them into a graph.Graph.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidLocation is returned for locations that are neither paths nor s3:// URLs.
var ErrInvalidLocation = errors.New("invalid dataset location")

// S3API is the subset of the S3 client the opener needs
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures the S3 client. Empty credentials fall back to the
// default AWS credential chain.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Opener resolves dataset locations to readers. The S3 client is created on
// first use so purely local runs never touch AWS configuration.
type Opener struct {
	opts S3Options

	mu     sync.Mutex
	client S3API
}

// NewOpener creates an opener that builds its S3 client from opts
func NewOpener(opts S3Options) *Opener {
	return &Opener{opts: opts}
}

// NewOpenerWithClient creates an opener around an existing S3 client
func NewOpenerWithClient(client S3API) *Opener {
	return &Opener{client: client}
}

// Open returns a reader for a local path or an s3://bucket/key URL.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, "s3://") {
		if location == "" {
			return nil, fmt.Errorf("%w: empty path", ErrInvalidLocation)
		}
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}

	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", location, err)
	}
	return out.Body, nil
}

// ParseS3URL splits s3://bucket/key into its bucket and key
func ParseS3URL(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q is not an s3://bucket/key URL", ErrInvalidLocation, location)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("%w: %q has no object key", ErrInvalidLocation, location)
	}
	return u.Host, key, nil
}

func (o *Opener) s3Client(ctx context.Context) (S3API, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.client != nil {
		return o.client, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if o.opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.opts.Region))
	}
	if o.opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.opts.AccessKeyID, o.opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	o.client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.opts.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.opts.Endpoint)
		}
		so.UsePathStyle = o.opts.UsePathStyle
	})
	return o.client, nil
}
