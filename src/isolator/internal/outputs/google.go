package outputs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/outputs/storagepath"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"google.golang.org/api/option"
)

var _ Store = GoogleStore{}

type GoogleStore struct {
	client        *storage.Client
	pathGenerator storagepath.Generator
}

func NewGoogleStore(ctx context.Context, host string, bucket string, options ...option.ClientOption) (GoogleStore, error) {
	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return GoogleStore{}, cerr.Wrap(err).Error("Failed to create cloud storage client")
	}

	return GoogleStore{
		client: client,
		pathGenerator: storagepath.Generator{
			Host:   host,
			Bucket: bucket,
		},
	}, nil
}

func (g GoogleStore) Save(ctx context.Context, localPath string) (Artifact, error) {
	name := storagepath.ArtifactName(filepath.Ext(localPath), time.Now())
	errctx := cerr.Field("local_path", localPath).Field("object", name).Field("bucket", g.pathGenerator.Bucket)

	file, err := os.Open(localPath)
	if err != nil {
		return Artifact{}, errctx.Wrap(err).Error("Failed to open artifact")
	}
	defer file.Close()

	// cancelling the writer's context is the only way to abandon an upload,
	// Close would commit whatever was written
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := g.client.Bucket(g.pathGenerator.Bucket).Object(name).NewWriter(writeCtx)
	writer.ContentType = contentType(name)

	if _, err := io.Copy(writer, file); err != nil {
		cancel()
		return Artifact{}, errctx.Wrap(err).Error("Failed to write artifact to cloud storage")
	}

	if err := writer.Close(); err != nil {
		return Artifact{}, errctx.Wrap(err).Error("Failed to finalize cloud storage object")
	}

	url := g.pathGenerator.GeneratePath(name)
	log.WithField("url", url).Info("Saved artifact to cloud storage")

	return Artifact{
		Name: name,
		URL:  url,
	}, nil
}
