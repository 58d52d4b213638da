package image

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-fluxdisk/internal/disk"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Handle captures the disk and writes its sectors to a flat image
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx.Progress("Opening capture...", 0)
	session, err := app.OpenSession(ctx, &req.Target)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	report, err := session.Run(ctx)
	if err != nil {
		return nil, err
	}

	response := &Response{OutputPath: req.OutputPath, Capture: report}
	base := session.Capture.Geometry()

	if !req.ConfigGeometry {
		catalogService, err := session.Factory.CatalogService(false)
		if err != nil {
			return nil, err
		}
		if cat, err := catalogService.ReadCatalogue(ctx); err == nil {
			response.Format = cat.Format
		}
		if g, err := catalogService.ImageGeometry(); err == nil {
			base = g
		} else {
			ctx.Log(fmt.Sprintf("No filesystem detected, using configured geometry: %v", err))
		}
	}
	response.Geometry = disk.ImageGeometry(req.OutputPath, base)

	sink, err := disk.CreateFlatImage(ctx.Fs, req.OutputPath, response.Geometry)
	if err != nil {
		return nil, app.NewError(app.ErrCodeCaptureAccess, "failed to create image", err)
	}

	imageService, err := session.Factory.ImageService()
	if err != nil {
		sink.Close()
		return nil, err
	}
	response.Export, err = imageService.Export(sink, response.Geometry)
	if err != nil {
		return nil, app.NewError(app.ErrCodeCaptureAccess, "failed to export image", err)
	}
	response.WriteTime = time.Since(startTime)

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Wrote %d sectors to %s", response.Export.Written, req.OutputPath))

	if req.Strict && !response.Complete() {
		return response, app.NewError(app.ErrCodeIncomplete,
			fmt.Sprintf("%d bad and %d missing sectors", response.Export.Bad, len(response.Export.Missing)), nil)
	}
	return response, nil
}
