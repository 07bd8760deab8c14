// Package storage holds the object-storage collaborators that keep uploaded documents.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ResourceType is the provider category a file is stored under.
type ResourceType string

const (
	// ResourceAuto lets the provider infer handling from the content.
	ResourceAuto ResourceType = "auto"
	// ResourceRaw stores bytes as-is, without delivery restrictions.
	ResourceRaw ResourceType = "raw"
	// ResourceImage is the provider's own category for non-raw assets.
	ResourceImage ResourceType = "image"
)

// DeliveryUpload is the only delivery type the API hands out.
const DeliveryUpload = "upload"

// FlagAttachment forces the browser to download instead of display.
const FlagAttachment = "attachment"

// Destroy result values.
const (
	ResultOK       = "ok"
	ResultNotFound = "not found"
)

// ErrNotFound is wrapped by Resource when nothing is stored under the id in the given category.
var ErrNotFound = errors.New("resource not found")

// UploadParams describes where and how an upload is stored.
type UploadParams struct {
	Folder       string
	PublicID     string
	ResourceType ResourceType
	Format       string
	ContentType  string
	Size         int64
}

// UploadResult is what the provider reports for a stored file.
type UploadResult struct {
	PublicID     string
	SecureURL    string
	Format       string
	ResourceType ResourceType
	Bytes        int64
}

// Asset is the metadata of a stored file.
type Asset struct {
	PublicID     string
	SecureURL    string
	Format       string
	ResourceType ResourceType
	Bytes        int64
	Width        int
	Height       int
	CreatedAt    time.Time
}

// URLOptions controls delivery URL derivation.
type URLOptions struct {
	ResourceType ResourceType
	DeliveryType string
	Secure       bool
	Flags        string
}

// DestroyResult mirrors the provider's destroy answer: "ok", "not found" or another status.
type DestroyResult struct {
	Result string `json:"result"`
}

// Provider is the object-storage collaborator.
//
// Destroy reports a missing file as DestroyResult{Result: "not found"} and Resource
// returns an error wrapping ErrNotFound, so callers can fall back to another category.
type Provider interface {
	Upload(ctx context.Context, r io.Reader, params UploadParams) (*UploadResult, error)
	Destroy(ctx context.Context, publicID string, rt ResourceType) (*DestroyResult, error)
	Resource(ctx context.Context, publicID string, rt ResourceType) (*Asset, error)
	// URL derives a delivery URL locally, without a network call.
	URL(publicID string, opts URLOptions) (string, error)
	Ping(ctx context.Context) error
}

// ParseResourceType accepts the categories callers may name explicitly.
// An empty string yields "" so the caller can apply its own default.
func ParseResourceType(s string) (ResourceType, bool) {
	switch rt := ResourceType(strings.ToLower(strings.TrimSpace(s))); rt {
	case "", ResourceAuto, ResourceRaw, ResourceImage, "video":
		return rt, true
	default:
		return "", false
	}
}

// bucketCategory folds the provider-specific categories into the two buckets
// used by the self-hosted backends, which do no content inference.
func bucketCategory(rt ResourceType) ResourceType {
	if rt == ResourceRaw {
		return ResourceRaw
	}
	return ResourceAuto
}

// objectPath joins folder and public id the way hosted providers do.
func objectPath(folder, publicID string) string {
	if folder == "" {
		return publicID
	}
	return path.Join(folder, publicID)
}

// formatOf returns the lower-cased extension of a public id without the dot.
func formatOf(publicID string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(publicID), "."))
}

// validPublicID rejects ids that could escape the storage namespace.
func validPublicID(publicID string) bool {
	if publicID == "" || strings.HasPrefix(publicID, "/") || strings.Contains(publicID, "\\") {
		return false
	}
	for _, seg := range strings.Split(publicID, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
