package image

import (
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

var knownExtensions = map[string]bool{
	".ssd": true,
	".dsd": true,
	".adl": true,
	".adf": true,
	".img": true,
}

// Validate validates an image request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.OutputPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "output image path is required", nil)
	}
	if filepath.Clean(r.OutputPath) == filepath.Clean(r.Target.RawPath) {
		return app.NewError(app.ErrCodeInvalidInput, "output image would overwrite the capture file", nil)
	}
	if ext := strings.ToLower(filepath.Ext(r.OutputPath)); !knownExtensions[ext] {
		return app.NewError(app.ErrCodeInvalidInput, "unsupported image extension: "+ext, nil)
	}
	return nil
}
