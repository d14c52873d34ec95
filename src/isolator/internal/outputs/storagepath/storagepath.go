package storagepath

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const nameTimeLayout = "20060102-150405"

type Generator struct {
	Host   string
	Bucket string
}

func (g Generator) GeneratePath(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(g.Host, "/"), g.Bucket, objectName)
}

// ArtifactName builds a collision free file name carrying the export time.
func ArtifactName(ext string, now time.Time) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	shortID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	return fmt.Sprintf("vocals-%s-%s.%s", now.UTC().Format(nameTimeLayout), shortID, ext)
}
