// Package imagestore re-hosts avatar images on Cloudinary so records keep
// working after the source CDN rotates its URLs.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-resty/resty/v2"
)

// folder namespaces the re-hosted avatars within the Cloudinary account.
const folder = "instagram_profiles"

// downloadTimeout bounds the avatar fetch from the source CDN.
const downloadTimeout = 20 * time.Second

// Cloudinary persists avatar images under deterministic public IDs.
type Cloudinary struct {
	cld  *cloudinary.Cloudinary
	http *resty.Client
}

// New creates an image store backed by the given Cloudinary account.
func New(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	http := resty.New()
	http.SetTimeout(downloadTimeout)

	return &Cloudinary{cld: cld, http: http}, nil
}

// PublicID derives the deterministic upload identifier for a handle, so a
// re-enriched profile overwrites its previous avatar instead of piling up
// copies.
func PublicID(handle string) string {
	return folder + "/" + handle
}

// Persist downloads the image at sourceURL and uploads it under the
// handle's public ID, returning the permanent URL. On any failure the
// caller is expected to fall back to sourceURL; persistence is never fatal
// to enrichment.
func (c *Cloudinary) Persist(ctx context.Context, sourceURL, handle string) (string, error) {
	if sourceURL == "" {
		return "", errors.New("no source image")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(sourceURL)
	if err != nil {
		return "", fmt.Errorf("download avatar: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("download avatar: status %d", resp.StatusCode())
	}

	res, err := c.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:     PublicID(handle),
		Overwrite:    api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload avatar: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
