package analyze

import (
	"fmt"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Validate validates an analysis request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.Track < AllTracks {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("invalid track %d", r.Track), nil)
	}
	if r.Head < AllTracks || r.Head > 1 {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("invalid head %d", r.Head), nil)
	}
	return nil
}
