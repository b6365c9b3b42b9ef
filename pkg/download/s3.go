package download

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type s3Source struct {
	bucket   string
	key      string
	maxBytes int64

	Svc *s3.S3
}

// newS3Source serves s3://bucket/key. Credentials and region come from the
// standard AWS environment and shared config.
func newS3Source(u *url.URL, opts Options) (*s3Source, error) {
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 url %q: expected s3://bucket/key", u.String())
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, err
	}

	return &s3Source{
		bucket:   u.Host,
		key:      key,
		maxBytes: opts.MaxBytes,
		Svc: s3.New(sess, &aws.Config{
			MaxRetries: aws.Int(3),
		}),
	}, nil
}

func (s *s3Source) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.Svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch s3 object %s: %w", s, err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && aws.Int64Value(out.ContentLength) > s.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, s.maxBytes)
	}

	return readAll(out.Body, s.maxBytes)
}

func (s *s3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}
