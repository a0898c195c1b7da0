package prepare

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store downloads model artifacts from an S3-compatible object store.
type S3Store struct {
	Client     *s3.Client
	Downloader *manager.Downloader
}

var _ ObjectStore = &S3Store{}

func NewS3Store(ctx context.Context) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		Client:     client,
		Downloader: manager.NewDownloader(client),
	}, nil
}

// Download fetches every object below an s3://bucket/prefix URI into dir,
// preserving key structure relative to the prefix.
func (s *S3Store) Download(ctx context.Context, rawuri string, into string) error {
	bucket, prefix, err := splitS3URI(rawuri)
	if err != nil {
		return err
	}
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
			if rel == "" {
				rel = filepath.Base(key)
			}
			if err := s.downloadObject(ctx, bucket, key, filepath.Join(into, filepath.FromSlash(rel))); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *S3Store) downloadObject(ctx context.Context, bucket string, key string, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	_, err = s.Downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func splitS3URI(rawuri string) (string, string, error) {
	u, err := url.Parse(rawuri)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 uri: %s", rawuri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
