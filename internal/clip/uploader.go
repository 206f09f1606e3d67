package clip

import (
	"context"

	"github.com/browserclip/engine/internal/model"
)

// Uploader is the dependency the Clip Builder hands finished clips to (spec
// section 4.4/4.5). The concrete implementation (internal/uploader) speaks
// the Supabase REST/storage API; this interface lets the builder be tested
// without a network dependency.
type Uploader interface {
	// UploadBlob writes data to a generated object path and returns the
	// storage_path the row should reference.
	UploadBlob(ctx context.Context, filename string, data []byte) (storagePath string, err error)
	// UploadRow inserts the clip metadata row and returns the assigned id.
	UploadRow(ctx context.Context, row model.ClipRecord) (clipID string, err error)
}
