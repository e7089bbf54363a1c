package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/sfcpay/internal/archive"
	"github.com/PolarWolf314/sfcpay/internal/codec"
)

// ArchiveBatch uploads a batch result as JSON and returns its s3:// URI.
// Item outputs are stored as returned by the API, already decrypted, so the
// bucket should be private and encrypted at rest.
func ArchiveBatch(ctx context.Context, uploader *archive.Uploader, result *BatchResult) (string, error) {
	content, err := codec.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("rendering batch result: %w", err)
	}
	return uploader.Upload(ctx, result.RunID, content)
}
