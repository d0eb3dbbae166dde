package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/metrics"
)

// Kind classifies an upload item.
type Kind string

const (
	KindImage       Kind = "image"
	KindVideo       Kind = "video"
	KindSpreadsheet Kind = "spreadsheet"
	KindDocument    Kind = "document"
)

// Item is one file of a submission. Path is optional for product media and
// required for documents and spreadsheets.
type Item struct {
	Kind        Kind
	Name        string
	Size        int64
	ContentType string
	Path        string
	IsMain      bool
	Color       string
	Open        func() (io.ReadCloser, error)
}

// Uploaded is the accumulator entry recorded for a stored item.
type Uploaded struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        Kind   `json:"type"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	IsMain      bool   `json:"isMain"`
	Color       string `json:"color"`
}

// ProgressFunc receives the position of the item in upload order and its
// completion percentage.
type ProgressFunc func(index int, pct float64)

// Orchestrator uploads the files of one submission strictly in order and
// deletes what it already wrote if a later file fails.
type Orchestrator struct {
	store ObjectStore
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

func NewOrchestrator(store ObjectStore, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{store: store, log: log, now: time.Now, newID: uuid.NewString}
}

// Store exposes the backend for single-object operations such as deletes.
func (o *Orchestrator) Store() ObjectStore {
	return o.store
}

func rank(it Item) int {
	switch {
	case it.Kind == KindImage && it.IsMain:
		return 0
	case it.Kind == KindImage:
		return 1
	case it.Kind == KindVideo:
		return 2
	}
	return 3
}

// Order returns the items in upload order: main image, gallery images in
// selection order, video, then everything else.
func Order(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// Run uploads items one after another. On failure every object written by
// this call is deleted, newest first, and the failing item's error is returned.
func (o *Orchestrator) Run(ctx context.Context, items []Item, progress ProgressFunc) ([]Uploaded, error) {
	ordered := Order(items)
	results := make([]Uploaded, 0, len(ordered))
	var undo []string

	for i, it := range ordered {
		up, err := o.put(ctx, i, it, progress)
		metrics.RecordObjectUpload(string(it.Kind), err == nil)
		if err != nil {
			o.rollback(ctx, undo)
			return nil, fmt.Errorf("upload %s: %w", it.Name, err)
		}
		undo = append(undo, up.Path)
		results = append(results, up)
	}
	return results, nil
}

func (o *Orchestrator) put(ctx context.Context, index int, it Item, progress ProgressFunc) (Uploaded, error) {
	if it.Open == nil {
		return Uploaded{}, fmt.Errorf("no content")
	}
	path := it.Path
	if path == "" {
		path = MediaPath(o.now(), it.Kind, o.newID(), it.Name)
	}

	rc, err := it.Open()
	if err != nil {
		return Uploaded{}, err
	}
	defer rc.Close()

	report := func(written int64) {
		if progress == nil {
			return
		}
		pct := 100.0
		if it.Size > 0 {
			pct = float64(written) / float64(it.Size) * 100
			if pct > 100 {
				pct = 100
			}
		}
		progress(index, pct)
	}
	if progress != nil {
		progress(index, 0)
	}

	if err := o.store.Put(ctx, path, it.ContentType, rc, it.Size, report); err != nil {
		return Uploaded{}, err
	}
	u, err := o.store.URL(ctx, path)
	if err != nil {
		// the object exists even though its URL could not be issued
		o.rollback(ctx, []string{path})
		return Uploaded{}, err
	}
	if progress != nil {
		progress(index, 100)
	}

	o.log.Debug("object stored", zap.String("path", path), zap.String("kind", string(it.Kind)))
	return Uploaded{
		URL:         u,
		Name:        it.Name,
		Path:        path,
		Type:        it.Kind,
		ContentType: it.ContentType,
		Size:        it.Size,
		IsMain:      it.IsMain,
		Color:       it.Color,
	}, nil
}

func (o *Orchestrator) rollback(ctx context.Context, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for i := len(paths) - 1; i >= 0; i-- {
		metrics.RecordRollback()
		if err := o.store.Delete(ctx, paths[i]); err != nil {
			o.log.Error("rollback delete failed", zap.String("path", paths[i]), zap.Error(err))
		}
	}
}

// MediaPath is the storage path of product media:
// products/<unixMillis>_<kind>_<id>_<safeName>.
func MediaPath(now time.Time, kind Kind, id, name string) string {
	return fmt.Sprintf("products/%d_%s_%s_%s", now.UnixMilli(), kind, id, SafeName(name))
}

// SafeName turns a user file name into a slug keeping its extension.
func SafeName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := slug.Make(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	if base == "" {
		base = "file"
	}
	return base + ext
}

// DedupeFiles drops items that repeat an earlier item's name and size.
func DedupeFiles(items []Item) []Item {
	type key struct {
		name string
		size int64
	}
	seen := make(map[key]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := key{it.Name, it.Size}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}
