package download

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ObjectStoreConfig describes the S3-compatible bucket mirroring the study
// files.
type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type objectGetter interface {
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
}

// ObjectStore downloads study files from an S3-compatible bucket.
type ObjectStore struct {
	client objectGetter
	bucket string
	prefix string
	dir    string
	logger zerolog.Logger
}

// NewObjectStore connects to the bucket and checks that it exists.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig, dir string, logger zerolog.Logger) (*ObjectStore, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}
	return newObjectStore(cli, cfg.Bucket, cfg.Prefix, dir, logger), nil
}

func newObjectStore(client objectGetter, bucket, prefix, dir string, logger zerolog.Logger) *ObjectStore {
	return &ObjectStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		dir:    dir,
		logger: logger.With().Str("component", "downloader").Str("bucket", bucket).Logger(),
	}
}

func (s *ObjectStore) MissingStudyFiles(_ context.Context, names []string, force bool) ([]string, error) {
	return missingIn(s.dir, names, force)
}

// GetStudyFiles downloads names into the study directory. Objects absent
// from the bucket are returned as still missing; any other failure aborts.
func (s *ObjectStore) GetStudyFiles(ctx context.Context, names []string, force bool) (fetched, missing []string, err error) {
	err = withLock(ctx, s.dir, func() error {
		todo, err := missingIn(s.dir, names, force)
		if err != nil {
			return err
		}
		for _, name := range todo {
			key := path.Join(s.prefix, name)
			dst := filepath.Join(s.dir, name)
			err := s.client.FGetObject(ctx, s.bucket, key, dst, minio.GetObjectOptions{})
			if err != nil {
				if minio.ToErrorResponse(err).Code == "NoSuchKey" {
					s.logger.Warn().Str("object", key).Msg("study file not found in bucket")
					if still, _ := missingIn(s.dir, []string{name}, false); len(still) == 0 {
						continue
					}
					missing = append(missing, name)
					continue
				}
				return fmt.Errorf("download %s: %w", key, err)
			}
			s.logger.Info().Str("object", key).Str("path", dst).Msg("study file downloaded")
			fetched = append(fetched, name)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return fetched, missing, nil
}
