package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Cloudinary stores files in a Cloudinary account; the stored path is the
// asset's secure URL.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	prefix string
}

func NewCloudinary(cld *cloudinary.Cloudinary, prefix string) *Cloudinary {
	return &Cloudinary{cld: cld, prefix: strings.Trim(prefix, "/")}
}

func (c *Cloudinary) Save(ctx context.Context, folder string, img *Image) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, img.Reader, uploader.UploadParams{
		Folder:    path.Join(c.prefix, folder),
		PublicID:  uuid.NewString(),
		Overwrite: api.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, assetURL string) error {
	if assetURL == "" {
		return nil
	}
	publicID, err := publicIDFromURL(assetURL)
	if err != nil {
		return err
	}

	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	// "not found" means an earlier attempt already removed it
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, resp.Result)
	}
	return nil
}

func (c *Cloudinary) PublicURL(path string) string { return path }

// publicIDFromURL extracts "folder/name" from
// https://res.cloudinary.com/<cloud>/image/upload/v123/folder/name.jpg
func publicIDFromURL(assetURL string) (string, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part != "upload" || i+1 >= len(parts) {
			continue
		}
		rest := parts[i+1:]
		if len(rest) > 1 && strings.HasPrefix(rest[0], "v") && isDigits(rest[0][1:]) {
			rest = rest[1:]
		}
		id := strings.Join(rest, "/")
		return strings.TrimSuffix(id, path.Ext(id)), nil
	}
	return "", errors.New("failed to extract public ID from URL")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
