package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/segmentio/encoding/json"

	"github.com/reekid420/website-searcher/internal/searcherr"
)

// S3Persister is an optional remote Persister so a team can share one
// result cache across machines instead of each keeping a local file,
// adapted from the teacher's internal/storage/s3_storage.go into the
// same Persister contract as FilePersister.
type S3Persister struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Persister builds an S3-backed persister against an S3-compatible
// endpoint (AWS S3 or a self-hosted MinIO instance, matching the
// teacher's endpoint-override pattern for MinIO deployments).
func NewS3Persister(ctx context.Context, bucket, key, endpoint, accessKey, secretKey string) (*S3Persister, error) {
	creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("us-east-1"),
	}
	if endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
			},
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", searcherr.ErrConfigError, err)
	}

	return &S3Persister{client: s3.NewFromConfig(cfg), bucket: bucket, key: key}, nil
}

func (p *S3Persister) Load() ([]Entry, error) {
	ctx := context.Background()
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
	})
	if err != nil {
		// Missing object is an empty cache, not an error, matching
		// FilePersister's os.IsNotExist handling.
		return nil, nil
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}
	return entries, nil
}

func (p *S3Persister) Save(entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	_, err = p.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
		Body:   bytes.NewReader(raw),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}
	return nil
}
