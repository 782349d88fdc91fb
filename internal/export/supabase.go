package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseExporter uploads results to a Supabase Storage bucket
type SupabaseExporter struct {
	client *storage_go.Client
	bucket string
}

// NewSupabaseExporter creates an exporter for bucket of the project at url
func NewSupabaseExporter(url, key, bucket string) *SupabaseExporter {
	return &SupabaseExporter{
		client: storage_go.NewClient(url+"/storage/v1", key, nil),
		bucket: bucket,
	}
}

// Export uploads data as <uuid>/<name> and returns its public URL
func (e *SupabaseExporter) Export(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := path.Join(uuid.NewString(), safeName(name))
	if _, err := e.client.UploadFile(e.bucket, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	publicURL := e.client.GetPublicUrl(e.bucket, key)
	return publicURL.SignedURL, nil
}

// Health lists the bucket to check that the storage is reachable
func (e *SupabaseExporter) Health(ctx context.Context) error {
	if _, err := e.client.ListFiles(e.bucket, "", storage_go.FileSearchOptions{}); err != nil {
		return fmt.Errorf("supabase bucket %s: %w", e.bucket, err)
	}
	return nil
}
