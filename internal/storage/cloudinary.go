package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/asset"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryProvider stores files in a Cloudinary account.
type CloudinaryProvider struct {
	cld    *cloudinary.Cloudinary
	logger *slog.Logger
}

// NewCloudinaryProvider configures the SDK client once for the whole process.
func NewCloudinaryProvider(cloudName, apiKey, apiSecret string, logger *slog.Logger) (*CloudinaryProvider, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("configuring cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryProvider{cld: cld, logger: logger}, nil
}

// Upload stores r under folder/publicID. Non-raw public ids drop their extension
// because Cloudinary keeps the format separately for those assets.
func (p *CloudinaryProvider) Upload(ctx context.Context, r io.Reader, params UploadParams) (*UploadResult, error) {
	rt := params.ResourceType
	if rt == "" {
		rt = ResourceAuto
	}
	publicID := params.PublicID
	if rt != ResourceRaw {
		publicID = strings.TrimSuffix(publicID, path.Ext(publicID))
	}

	res, err := p.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       params.Folder,
		ResourceType: string(rt),
		Format:       params.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("uploading %s: %s", publicID, res.Error.Message)
	}
	p.logger.Debug("cloudinary upload stored",
		slog.String("public_id", res.PublicID),
		slog.String("resource_type", res.ResourceType),
		slog.Int("bytes", res.Bytes))

	return &UploadResult{
		PublicID:     res.PublicID,
		SecureURL:    res.SecureURL,
		Format:       res.Format,
		ResourceType: ResourceType(res.ResourceType),
		Bytes:        int64(res.Bytes),
	}, nil
}

// Destroy deletes an asset. Cloudinary answers "not found" for the wrong category.
func (p *CloudinaryProvider) Destroy(ctx context.Context, publicID string, rt ResourceType) (*DestroyResult, error) {
	res, err := p.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: string(assetCategory(rt)),
		Type:         DeliveryUpload,
	})
	if err != nil {
		return nil, fmt.Errorf("destroying %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		if isCloudinaryNotFound(res.Error.Message) {
			return &DestroyResult{Result: ResultNotFound}, nil
		}
		return nil, fmt.Errorf("destroying %s: %s", publicID, res.Error.Message)
	}
	return &DestroyResult{Result: res.Result}, nil
}

// Resource looks up asset metadata through the Admin API.
func (p *CloudinaryProvider) Resource(ctx context.Context, publicID string, rt ResourceType) (*Asset, error) {
	category := assetCategory(rt)
	res, err := p.cld.Admin.Asset(ctx, admin.AssetParams{
		PublicID:     publicID,
		AssetType:    api.AssetType(category),
		DeliveryType: api.DeliveryType(DeliveryUpload),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		if isCloudinaryNotFound(res.Error.Message) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, publicID, category)
		}
		return nil, fmt.Errorf("fetching %s: %s", publicID, res.Error.Message)
	}

	return &Asset{
		PublicID:     res.PublicID,
		SecureURL:    res.SecureURL,
		Format:       res.Format,
		ResourceType: category,
		Bytes:        int64(res.Bytes),
		Width:        res.Width,
		Height:       res.Height,
		CreatedAt:    res.CreatedAt,
	}, nil
}

// URL derives a delivery URL through the SDK's asset builder, so account
// settings such as a private CDN or CNAME carry over.
func (p *CloudinaryProvider) URL(publicID string, opts URLOptions) (string, error) {
	if publicID == "" {
		return "", fmt.Errorf("empty public id")
	}
	if opts.DeliveryType != "" && opts.DeliveryType != DeliveryUpload {
		return "", fmt.Errorf("unsupported delivery type %q", opts.DeliveryType)
	}

	var (
		a   *asset.Asset
		err error
	)
	switch assetCategory(opts.ResourceType) {
	case ResourceRaw:
		a, err = p.cld.File(publicID)
	case "video":
		a, err = p.cld.Video(publicID)
	default:
		a, err = p.cld.Image(publicID)
	}
	if err != nil {
		return "", fmt.Errorf("building url for %s: %w", publicID, err)
	}

	a.Config.URL.Secure = opts.Secure
	if opts.Flags != "" {
		a.Transformation = "fl_" + opts.Flags
	}
	return a.String()
}

// Ping checks credentials and reachability.
func (p *CloudinaryProvider) Ping(ctx context.Context) error {
	res, err := p.cld.Admin.Ping(ctx)
	if err != nil {
		return fmt.Errorf("pinging cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("pinging cloudinary: %s", res.Error.Message)
	}
	return nil
}

// assetCategory maps "auto", which is only meaningful on upload, to Cloudinary's image category.
func assetCategory(rt ResourceType) ResourceType {
	if rt == "" || rt == ResourceAuto {
		return ResourceImage
	}
	return rt
}

func isCloudinaryNotFound(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not found")
}
