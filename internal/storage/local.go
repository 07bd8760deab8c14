package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalRoutePrefix is where the API serves files kept by LocalProvider.
const LocalRoutePrefix = "/files"

// LocalProvider implements Provider on the local filesystem.
// Files live at <root>/<category>/<public id>.
type LocalProvider struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

// NewLocalProvider creates the root directory if needed. baseURL is the public
// origin the API is reachable at, e.g. http://localhost:3999.
func NewLocalProvider(root, baseURL string, logger *slog.Logger) (*LocalProvider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalProvider{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Upload writes r to a temporary file and renames it into place.
func (s *LocalProvider) Upload(ctx context.Context, r io.Reader, params UploadParams) (*UploadResult, error) {
	publicID := objectPath(params.Folder, params.PublicID)
	if !validPublicID(publicID) {
		return nil, fmt.Errorf("invalid public id %q", publicID)
	}
	category := bucketCategory(params.ResourceType)
	path := s.path(category, publicID)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("renaming file: %w", err)
	}

	secureURL, err := s.URL(publicID, URLOptions{ResourceType: category})
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		PublicID:     publicID,
		SecureURL:    secureURL,
		Format:       formatOf(publicID),
		ResourceType: category,
		Bytes:        size,
	}, nil
}

func (s *LocalProvider) Destroy(ctx context.Context, publicID string, rt ResourceType) (*DestroyResult, error) {
	if !validPublicID(publicID) {
		return &DestroyResult{Result: ResultNotFound}, nil
	}
	err := os.Remove(s.path(bucketCategory(rt), publicID))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &DestroyResult{Result: ResultNotFound}, nil
	case err != nil:
		return nil, fmt.Errorf("deleting file: %w", err)
	}
	return &DestroyResult{Result: ResultOK}, nil
}

func (s *LocalProvider) Resource(ctx context.Context, publicID string, rt ResourceType) (*Asset, error) {
	category := bucketCategory(rt)
	if !validPublicID(publicID) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, publicID, category)
	}

	info, err := os.Stat(s.path(category, publicID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, publicID, category)
		}
		return nil, fmt.Errorf("reading file info: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, publicID, category)
	}

	secureURL, err := s.URL(publicID, URLOptions{ResourceType: category})
	if err != nil {
		return nil, err
	}
	return &Asset{
		PublicID:     publicID,
		SecureURL:    secureURL,
		Format:       formatOf(publicID),
		ResourceType: category,
		Bytes:        info.Size(),
		CreatedAt:    info.ModTime().UTC(),
	}, nil
}

// URL returns <base>/files/<category>/[fl_<flags>/]<public id>. The scheme comes from
// the configured base URL, so Secure is not applied.
func (s *LocalProvider) URL(publicID string, opts URLOptions) (string, error) {
	if !validPublicID(publicID) {
		return "", fmt.Errorf("invalid public id %q", publicID)
	}
	parts := []string{s.baseURL + LocalRoutePrefix, string(bucketCategory(opts.ResourceType))}
	if opts.Flags != "" {
		parts = append(parts, "fl_"+opts.Flags)
	}
	parts = append(parts, publicID)
	return strings.Join(parts, "/"), nil
}

func (s *LocalProvider) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("storage directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.root)
	}
	return nil
}

// Open returns the stored file for serving. The caller must close it.
func (s *LocalProvider) Open(rt ResourceType, publicID string) (*os.File, error) {
	category := bucketCategory(rt)
	if !validPublicID(publicID) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, publicID, category)
	}
	f, err := os.Open(s.path(category, publicID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, publicID, category)
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

func (s *LocalProvider) path(category ResourceType, publicID string) string {
	return filepath.Join(s.root, string(category), filepath.FromSlash(publicID))
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
