// Package upload decides which documents are admitted, how they are named and
// classified in storage, and which URLs callers receive for them.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/hojasdevida/backend/internal/models"
	"github.com/hojasdevida/backend/internal/storage"
)

const (
	// MaxFileSize is the largest accepted document, 10 MiB.
	MaxFileSize = 10 << 20
	// MaxFiles is the most files accepted in one multi-file upload.
	MaxFiles = 10

	mimePDF = "application/pdf"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]+`)

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hojas_uploads_total",
	Help: "Documents handed to the storage provider, by resource type and outcome.",
}, []string{"resource_type", "outcome"})

// File is an inbound document: declared metadata plus a way to read its bytes.
type File struct {
	Field       string
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromMultipart wraps a multipart part received under the given form field.
func FromMultipart(field string, fh *multipart.FileHeader) File {
	return File{
		Field:       field,
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Policy applies admission, naming and classification rules and talks to the provider.
type Policy struct {
	provider storage.Provider
	folder   string
	logger   *slog.Logger
	now      func() time.Time
	random   func() int64
}

// NewPolicy creates a policy storing documents under folder.
func NewPolicy(provider storage.Provider, folder string, logger *slog.Logger) *Policy {
	return &Policy{
		provider: provider,
		folder:   folder,
		logger:   logger,
		now:      time.Now,
		random:   func() int64 { return rand.Int64N(1_000_000_000) },
	}
}

// MediaType returns the declared MIME type without parameters, lower-cased.
func MediaType(declared string) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mt
}

// Admit checks the declared type first, so a disallowed type is rejected whatever its size.
func Admit(f File) error {
	mt := MediaType(f.ContentType)
	if !allowedType(mt) {
		return fmt.Errorf("%w: %q is not allowed; accepted formats are JPG, PNG, GIF, PDF, DOC, DOCX, XLS, XLSX",
			models.ErrUnsupportedMediaType, mt)
	}
	return admitSize(f)
}

func admitSize(f File) error {
	if f.Size > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, the limit is 10MB", models.ErrPayloadTooLarge, f.Name, f.Size)
	}
	return nil
}

func allowedType(mt string) bool {
	switch mt {
	case "image/jpeg", "image/jpg", "image/png", "image/gif",
		mimePDF,
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return true
	}
	return false
}

// AdmitCount checks the number of files in a multi-file upload.
func AdmitCount(n int) error {
	switch {
	case n == 0:
		return fmt.Errorf("%w: no files provided", models.ErrBadRequest)
	case n > MaxFiles:
		return fmt.Errorf("%w: %d files, at most %d are allowed", models.ErrTooManyFiles, n, MaxFiles)
	}
	return nil
}

// SanitizeFileName lower-cases name and collapses every run of characters outside
// [a-zA-Z0-9.-] into a single underscore.
func SanitizeFileName(name string) string {
	return strings.ToLower(unsafeNameChars.ReplaceAllString(name, "_"))
}

// StorageKey builds <field>_<sanitized base>_<unix ms>_<9 random digits>.<ext>, where ext
// is the last extension of original.
func (p *Policy) StorageKey(field, original string) string {
	if field == "" {
		field = "file"
	}
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := filepath.Ext(name)
	// The base stops at the first dot: "my.cv.pdf" keeps "my".
	base, _, _ := strings.Cut(name, ".")
	if base == "" {
		base = "archivo"
	}

	key := fmt.Sprintf("%s_%s_%d_%09d", field, SanitizeFileName(base), p.now().UnixMilli(), p.random())
	if ext != "" {
		key += "." + unsafeNameChars.ReplaceAllString(strings.TrimPrefix(ext, "."), "_")
	}
	return key
}

// Classify stores PDFs raw so they can be linked directly; everything else is auto.
func Classify(contentType string) storage.ResourceType {
	if MediaType(contentType) == mimePDF {
		return storage.ResourceRaw
	}
	return storage.ResourceAuto
}

// IsPDFFile reports whether a file looks like a PDF by extension or declared type.
func IsPDFFile(name, contentType string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") || MediaType(contentType) == mimePDF
}

// Store admits f, uploads it and builds the response descriptor. forceRaw stores
// the file under the raw category whatever its type. A failure to derive the URL
// bundle is logged and leaves PDFURLs nil.
func (p *Policy) Store(ctx context.Context, f File, forceRaw bool) (*models.UploadedFile, error) {
	if err := Admit(f); err != nil {
		return nil, err
	}
	return p.store(ctx, f, forceRaw)
}

// StorePDF stores a file recognised by IsPDFFile under the raw category. The declared
// type is not checked, so a .pdf sent as application/octet-stream is accepted.
func (p *Policy) StorePDF(ctx context.Context, f File) (*models.UploadedFile, error) {
	if !IsPDFFile(f.Name, f.ContentType) {
		return nil, fmt.Errorf("%w: %s is not a PDF", models.ErrBadRequest, f.Name)
	}
	if err := admitSize(f); err != nil {
		return nil, err
	}
	return p.store(ctx, f, true)
}

func (p *Policy) store(ctx context.Context, f File, forceRaw bool) (*models.UploadedFile, error) {
	rt := Classify(f.ContentType)
	if forceRaw {
		rt = storage.ResourceRaw
	}
	isPDF := rt == storage.ResourceRaw
	key := p.StorageKey(f.Field, f.Name)

	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", models.ErrBadRequest, f.Name, err)
	}
	defer r.Close()

	res, err := p.provider.Upload(ctx, r, storage.UploadParams{
		Folder:       p.folder,
		PublicID:     key,
		ResourceType: rt,
		ContentType:  MediaType(f.ContentType),
		Size:         f.Size,
	})
	if err != nil {
		uploadsTotal.WithLabelValues(string(rt), "error").Inc()
		return nil, fmt.Errorf("%w: storing %s: %w", models.ErrUpstream, f.Name, err)
	}
	uploadsTotal.WithLabelValues(string(rt), "stored").Inc()

	out := &models.UploadedFile{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		Nombre:       f.Name,
		Tipo:         MediaType(f.ContentType),
		Size:         f.Size,
		IsPDF:        isPDF,
		Field:        f.Field,
		ResourceType: string(rt),
		UploadedAt:   p.now().UTC(),
	}
	if isPDF {
		bundle, err := p.URLs(res.PublicID, true, f.Name, storage.ResourceRaw)
		if err != nil {
			p.logger.Warn("could not derive document URLs",
				slog.String("public_id", res.PublicID),
				slog.Any("error", err))
		} else {
			out.PDFURLs = bundle
		}
	}

	p.logger.Info("document stored",
		slog.String("public_id", out.PublicID),
		slog.String("field", f.Field),
		slog.String("resource_type", string(rt)),
		slog.Int64("size", f.Size))
	return out, nil
}

// StoreMany admits every file before uploading any, then uploads them concurrently.
// Results keep the input order; the first failure fails the whole batch.
func (p *Policy) StoreMany(ctx context.Context, files []File) ([]*models.UploadedFile, error) {
	if err := AdmitCount(len(files)); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := Admit(f); err != nil {
			return nil, err
		}
	}

	results := make([]*models.UploadedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			out, err := p.store(gctx, f, false)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// URLs derives the view, direct and download URLs for a stored file. PDFs always
// use the raw category. A filename adds fl_attachment=<name> to the download URL.
func (p *Policy) URLs(publicID string, isPDF bool, filename string, rt storage.ResourceType) (*models.URLBundle, error) {
	if isPDF {
		rt = storage.ResourceRaw
	}
	if rt == "" {
		rt = storage.ResourceAuto
	}

	opts := storage.URLOptions{ResourceType: rt, DeliveryType: storage.DeliveryUpload, Secure: true}
	view, err := p.provider.URL(publicID, opts)
	if err != nil {
		return nil, fmt.Errorf("deriving view URL: %w", err)
	}

	opts.Flags = storage.FlagAttachment
	download, err := p.provider.URL(publicID, opts)
	if err != nil {
		return nil, fmt.Errorf("deriving download URL: %w", err)
	}
	if filename != "" {
		sep := "?"
		if strings.Contains(download, "?") {
			sep = "&"
		}
		download += sep + "fl_attachment=" + encodeComponent(filename)
	}

	return &models.URLBundle{Download: download, View: view, Direct: view}, nil
}

// Delete removes a stored file. With an explicit category a single attempt is made;
// otherwise auto is tried first and raw once more if auto reports not found.
func (p *Policy) Delete(ctx context.Context, publicID string, rt storage.ResourceType) (*storage.DestroyResult, error) {
	if rt != "" {
		return p.destroy(ctx, publicID, rt)
	}

	res, err := p.destroy(ctx, publicID, storage.ResourceAuto)
	if err != nil || res.Result != storage.ResultNotFound {
		return res, err
	}

	p.logger.Debug("not found under auto, retrying raw", slog.String("public_id", publicID))
	return p.destroy(ctx, publicID, storage.ResourceRaw)
}

// destroy folds a not-found error into the "not found" result so both provider
// conventions trigger the same fallback.
func (p *Policy) destroy(ctx context.Context, publicID string, rt storage.ResourceType) (*storage.DestroyResult, error) {
	res, err := p.provider.Destroy(ctx, publicID, rt)
	if errors.Is(err, storage.ErrNotFound) {
		return &storage.DestroyResult{Result: storage.ResultNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: deleting %s: %w", models.ErrUpstream, publicID, err)
	}
	return res, nil
}

// Info is the metadata of a stored file and whether it is a PDF.
type Info struct {
	File         models.FileInfo
	IsPDF        bool
	ResourceType storage.ResourceType
}

// Info looks a file up under auto, then raw. Files found under raw count as PDFs.
func (p *Policy) Info(ctx context.Context, publicID string) (*Info, error) {
	asset, autoErr := p.provider.Resource(ctx, publicID, storage.ResourceAuto)
	rt := storage.ResourceAuto
	if autoErr != nil {
		var rawErr error
		asset, rawErr = p.provider.Resource(ctx, publicID, storage.ResourceRaw)
		if rawErr != nil {
			p.logger.Debug("file lookup failed",
				slog.String("public_id", publicID),
				slog.Any("auto_error", autoErr),
				slog.Any("raw_error", rawErr))
			return nil, fmt.Errorf("%w: file %s", models.ErrNotFound, publicID)
		}
		rt = storage.ResourceRaw
	}

	return &Info{
		File: models.FileInfo{
			PublicID:  asset.PublicID,
			URL:       asset.SecureURL,
			Size:      asset.Bytes,
			Format:    asset.Format,
			CreatedAt: asset.CreatedAt,
			Width:     asset.Width,
			Height:    asset.Height,
		},
		IsPDF:        strings.EqualFold(asset.Format, "pdf") || rt == storage.ResourceRaw,
		ResourceType: rt,
	}, nil
}

// encodeComponent percent-encodes s for use as a single query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
