package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	core "github.com/deploymenttheory/go-fluxdisk/internal/services"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
	"github.com/deploymenttheory/go-fluxdisk/pkg/services"
)

// Session is an opened capture file with the services working on it
type Session struct {
	Factory *services.ServiceFactory
	Capture *core.CaptureServiceImpl
}

// OpenSession loads the configuration, applies the target overrides and opens
// the capture file
func OpenSession(ctx *Context, target *CaptureTarget) (*Session, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	loaded, err := ctx.LoadConfig()
	if err != nil {
		return nil, err
	}

	config := *loaded
	if target.Tracks > 0 {
		config.Tracks = target.Tracks
	}
	if target.Heads > 0 {
		config.Heads = target.Heads
	}
	if target.CatalogOnly {
		config.CatalogOnly = true
	}

	if err := config.Validate(); err != nil {
		return nil, NewError(ErrCodeConfig, "invalid capture overrides", err)
	}

	factory := services.NewServiceFactory(ctx.Fs, target.RawPath, &config)
	capture, err := factory.CaptureService()
	if err != nil {
		return nil, NewError(ErrCodeCaptureAccess, "failed to open capture", err)
	}
	capture.SetProgress(ctx.Progress)

	ctx.Log(target.String())
	return &Session{Factory: factory, Capture: capture}, nil
}

// Close releases the capture file
func (s *Session) Close() error {
	return s.Factory.Shutdown()
}

// Run captures the disk. Tracks that ran out of retries are left in the
// report; any other failure is returned.
func (s *Session) Run(ctx *Context) (*services.CaptureReport, error) {
	report, err := s.Capture.Capture(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return report, NewError(ErrCodeTimeout, "capture timed out", err)
	}
	if Fatal(err) {
		return report, NewError(ErrCodeCaptureAccess, "capture failed", err)
	}
	if err != nil {
		ctx.Log(fmt.Sprintf("%d tracks incomplete", len(report.IncompleteTracks())))
	}
	return report, nil
}

// Fatal reports whether a capture error holds anything beyond tracks that ran
// out of retries
func Fatal(err error) bool {
	for _, e := range multierr.Errors(err) {
		if !errors.Is(e, types.ErrRetriesExhausted) {
			return true
		}
	}
	return false
}
