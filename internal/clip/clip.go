// clip.go — the create_clip request contract (spec section 4.4, 6):
// build a snapshot, sanitize it, route it to the Uploader, and report
// {success, clip_id?, entry_count, size_bytes, error?}.
package clip

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/browserclip/engine/internal/config"
	"github.com/browserclip/engine/internal/model"
	"github.com/browserclip/engine/internal/sanitize"
	"github.com/browserclip/engine/internal/store"
)

// inlineThreshold is the strict "< 1 MiB" boundary (spec section 4.4, 8).
const inlineThreshold = 1 << 20

// Request is the create_clip request contract.
type Request struct {
	StartMs int64
	EndMs   int64
	Tabs    []int
	Name    string
}

// Result is the create_clip response contract.
type Result struct {
	Success    bool
	ClipID     string
	EntryCount int
	SizeBytes  int64
	Error      string
}

// Builder owns the store, config, and uploader a clip request needs.
type Builder struct {
	store    *store.Store
	cfg      *config.Config
	uploader Uploader
	log      *logrus.Entry
}

// NewBuilder constructs a Builder.
func NewBuilder(s *store.Store, cfg *config.Config, uploader Uploader, log *logrus.Logger) *Builder {
	if log == nil {
		log = logrus.New()
	}
	return &Builder{store: s, cfg: cfg, uploader: uploader, log: log.WithField("component", "clip")}
}

// CreateClip implements the request contract (spec section 4.4).
func (b *Builder) CreateClip(ctx context.Context, req Request) (Result, error) {
	if req.StartMs > req.EndMs {
		err := fmt.Errorf("clip: start_ms %d > end_ms %d", req.StartMs, req.EndMs)
		return Result{Error: err.Error()}, err
	}

	tabs := store.NewTabFilter(req.Tabs)
	built, err := build(b.store, req.StartMs, req.EndMs, tabs, "", "")
	if err != nil {
		// A snapshot read error is fatal for the clip (spec section 4.4).
		return Result{Error: err.Error()}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{Error: "cancelled"}, err
	}

	snap := b.cfg.Snapshot()
	sanitizer := sanitize.New(snap.CustomHeaderPatterns)
	sanitizer.Sanitize(built.doc, snap.SanitizeURLParams)

	data, err := json.Marshal(built.doc)
	if err != nil {
		return Result{Error: err.Error()}, fmt.Errorf("clip: marshal document: %w", err)
	}

	row := model.ClipRecord{
		ClipName:       req.Name,
		TimeRangeStart: msToISO(req.StartMs),
		TimeRangeEnd:   msToISO(req.EndMs),
		DurationSec:    float64(req.EndMs-req.StartMs) / 1000,
		TabFilter:      tabFilterForRow(req.Tabs),
		EntryCount:     built.entryCount,
		TotalSizeBytes: int64(len(data)),
	}

	blobUploaded := false
	if len(data) < inlineThreshold {
		row.HARData = built.doc
		row.StoragePath = nil
	} else {
		if err := ctx.Err(); err != nil {
			return Result{Error: "cancelled"}, err
		}
		filename := blobFilename(time.Now())
		storagePath, err := b.uploader.UploadBlob(ctx, filename, data)
		if err != nil {
			// A blob-upload failure aborts the row write (spec section 4.4).
			return Result{Error: err.Error()}, fmt.Errorf("clip: upload blob: %w", err)
		}
		blobUploaded = true
		row.HARData = nil
		row.StoragePath = &storagePath
	}

	if err := ctx.Err(); err != nil {
		return Result{Error: "cancelled"}, err
	}

	clipID, err := b.uploader.UploadRow(ctx, row)
	if err != nil {
		if blobUploaded {
			// Row-write failure after a successful blob write: reported, orphan
			// blob may remain (spec section 4.4, 7: BlobOrphaned).
			b.log.WithError(err).Warn("clip row write failed after blob upload; blob orphaned")
		}
		return Result{Error: err.Error()}, fmt.Errorf("clip: upload row: %w", err)
	}

	return Result{
		Success:    true,
		ClipID:     clipID,
		EntryCount: built.entryCount,
		SizeBytes:  int64(len(data)),
	}, nil
}

func tabFilterForRow(tabs []int) model.TabFilter {
	if len(tabs) == 0 {
		return model.TabFilter{Type: model.TabFilterAll}
	}
	return model.TabFilter{Type: model.TabFilterTabs, Tabs: tabs}
}

// blobFilename builds clip-<iso-timestamp-with-colons-and-dots-replaced-by-dash>.json
// with a short uuid disambiguator (spec section 4.4), grounded in the
// teacher's google/uuid dependency for generated identifiers.
func blobFilename(t time.Time) string {
	stamp := t.UTC().Format(isoLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("clip-%s-%s.json", stamp, uuid.NewString()[:8])
}
