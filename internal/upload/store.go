// Package upload writes product media, spreadsheets and seller documents to
// object storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrObjectNotFound is returned when deleting or resolving a missing object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the binary storage backend. progress receives the number of
// bytes written so far.
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, r io.Reader, size int64, progress func(written int64)) error
	URL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// LocalStore keeps objects under a directory served by the API at BaseURL.
type LocalStore struct {
	Root    string
	BaseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) abs(p string) (string, error) {
	clean := filepath.Clean("/" + p)
	if clean == "/" {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return filepath.Join(s.Root, clean), nil
}

func (s *LocalStore) Put(ctx context.Context, p, _ string, r io.Reader, _ int64, progress func(int64)) error {
	// 1. Resolve and create the target directory
	dst, err := s.abs(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	// 2. Stream the body
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	_, copyErr := io.Copy(f, &progressReader{ctx: ctx, r: r, progress: progress})
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("write object: %w", copyErr)
	}
	return closeErr
}

func (s *LocalStore) URL(_ context.Context, p string) (string, error) {
	dst, err := s.abs(p)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err != nil {
		if os.IsNotExist(err) {
			return "", ErrObjectNotFound
		}
		return "", err
	}
	segs := strings.Split(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+p)), "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.BaseURL + "/" + strings.Join(segs, "/"), nil
}

func (s *LocalStore) Delete(_ context.Context, p string) error {
	dst, err := s.abs(p)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}

// GCSStore writes objects to a Google Cloud Storage bucket and hands out
// signed download URLs.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	urlExpiry time.Duration
}

func NewGCSStore(ctx context.Context, bucket, credentialsFile string, urlExpiry time.Duration) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if urlExpiry <= 0 {
		urlExpiry = 7 * 24 * time.Hour
	}
	return &GCSStore{client: client, bucket: bucket, urlExpiry: urlExpiry}, nil
}

func (s *GCSStore) Put(ctx context.Context, p, contentType string, r io.Reader, _ int64, progress func(int64)) error {
	w := s.client.Bucket(s.bucket).Object(p).NewWriter(ctx)
	w.ContentType = contentType
	if progress != nil {
		w.ProgressFunc = progress
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", p, err)
	}
	return nil
}

func (s *GCSStore) URL(_ context.Context, p string) (string, error) {
	u, err := s.client.Bucket(s.bucket).SignedURL(p, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(s.urlExpiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", p, err)
	}
	return u, nil
}

func (s *GCSStore) Delete(ctx context.Context, p string) error {
	err := s.client.Bucket(s.bucket).Object(p).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// progressReader reports the running byte count and stops on cancellation.
type progressReader struct {
	ctx      context.Context
	r        io.Reader
	written  int64
	progress func(int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		if p.progress != nil {
			p.progress(p.written)
		}
	}
	return n, err
}
