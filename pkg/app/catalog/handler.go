package catalog

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Handle captures the disk and decodes its catalogue
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx.Log(fmt.Sprintf("Reading catalogue from: %s", req.Target.RawPath))
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

	catalogService, err := session.Factory.CatalogService(req.Refetch)
	if err != nil {
		return nil, err
	}

	cat, err := catalogService.ReadCatalogue(ctx)
	if err != nil {
		return nil, app.NewError(app.ErrCodeUnknownFormat, "failed to read catalogue", err)
	}

	response := &Response{
		Capture:   report,
		Catalogue: cat,
		ReadTime:  time.Since(startTime),
		MaxDepth:  req.MaxDepth,
	}

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Catalogue read: %s %q in %v", cat.Format, cat.Title, response.ReadTime))
	return response, nil
}
