package catalog

import (
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Validate validates a catalogue request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.MaxDepth < 0 {
		return app.NewError(app.ErrCodeInvalidInput, "max depth cannot be negative", nil)
	}
	return nil
}
