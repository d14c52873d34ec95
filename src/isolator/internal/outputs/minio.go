package outputs

import (
	"context"
	"net/url"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/outputs/storagepath"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

var _ Store = MinioStore{}

type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PresignExpiry time.Duration
}

// MinioStore uploads to an S3 compatible bucket and hands out presigned links.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
}

func NewMinioStore(ctx context.Context, config MinioConfig) (MinioStore, error) {
	errctx := cerr.Field("endpoint", config.Endpoint).Field("bucket", config.Bucket)

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return MinioStore{}, errctx.Wrap(err).Error("Failed to create minio client")
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return MinioStore{}, errctx.Wrap(err).Error("Failed to check bucket")
	}

	if !exists {
		err = client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region})
		if err != nil {
			return MinioStore{}, errctx.Wrap(err).Error("Failed to create bucket")
		}
		log.WithField("bucket", config.Bucket).Info("Created output bucket")
	}

	expiry := config.PresignExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	return MinioStore{
		client:        client,
		bucket:        config.Bucket,
		presignExpiry: expiry,
	}, nil
}

func (m MinioStore) Save(ctx context.Context, localPath string) (Artifact, error) {
	name := storagepath.ArtifactName(filepath.Ext(localPath), time.Now())
	errctx := cerr.Field("local_path", localPath).Field("object", name).Field("bucket", m.bucket)

	_, err := m.client.FPutObject(ctx, m.bucket, name, localPath, minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return Artifact{}, errctx.Wrap(err).Error("Failed to upload artifact")
	}

	presigned, err := m.client.PresignedGetObject(ctx, m.bucket, name, m.presignExpiry, url.Values{})
	if err != nil {
		return Artifact{}, errctx.Wrap(err).Error("Failed to presign artifact url")
	}

	log.WithField("object", name).Info("Saved artifact to minio")

	return Artifact{
		Name: name,
		URL:  presigned.String(),
	}, nil
}
