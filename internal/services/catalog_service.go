package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/dsoprea/go-logging"

	"github.com/deploymenttheory/go-fluxdisk/internal/diskstore"
	"github.com/deploymenttheory/go-fluxdisk/internal/interfaces"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/adfs"
	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/dfs"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

var catalogLogger = log.NewLogger("services.catalog")

// CatalogServiceImpl decodes the filesystem held in a sector store. ADFS is
// tried first, then Acorn DFS.
type CatalogServiceImpl struct {
	store   *diskstore.Store
	fetcher interfaces.TrackFetcher
}

// NewCatalogService creates a catalog service. fetcher may be nil; when set,
// tree walks that hit a missing sector re-capture its track once.
func NewCatalogService(store *diskstore.Store, fetcher interfaces.TrackFetcher) (*CatalogServiceImpl, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &CatalogServiceImpl{store: store, fetcher: fetcher}, nil
}

// ReadCatalogue detects the format and decodes the directory tree or catalogue
func (s *CatalogServiceImpl) ReadCatalogue(ctx context.Context) (*types.Catalogue, error) {
	det, err := adfs.Detect(s.store)
	if err == nil {
		reader := diskstore.NewAbsoluteReader(s.store, det.Geometry.Geometry())
		if s.fetcher != nil {
			reader = reader.WithFetcher(ctx, s.fetcher)
		}
		catalogLogger.Debugf(nil, "ADFS %s detected, walking %d byte image", det.Format, reader.Size())
		return adfs.ReadCatalogue(det, reader, reader.Size())
	}
	catalogLogger.Debugf(nil, "Not ADFS: %v", err)
	adfsErr := err

	cat, err := s.readDFS()
	if err != nil {
		return nil, fmt.Errorf("%w: ADFS: %v, DFS: %v", types.ErrUnknownFormat, adfsErr, err)
	}
	return cat, nil
}

// readDFS decodes the catalogue of each side that carries one
func (s *CatalogServiceImpl) readDFS() (*types.Catalogue, error) {
	first, err := dfs.Read(s.store, 0)
	if err != nil {
		return nil, err
	}

	cat := &types.Catalogue{
		Format:      "DFS",
		Title:       first.Title,
		BootOption:  first.BootOption,
		SectorCount: uint32(first.SectorCount),
		FreeSectors: dfs.FreeSectors(first),
		DFS:         []*types.DFSCatalogue{first},
	}

	second, err := dfs.Read(s.store, 1)
	switch {
	case err == nil:
		cat.Format = "DFS (double sided)"
		cat.DFS = append(cat.DFS, second)
	case errors.Is(err, types.ErrSectorMissing):
	default:
		catalogLogger.Warningf(nil, "Side 1 catalogue unreadable: %v", err)
	}
	return cat, nil
}

// ImageGeometry returns the linear layout of the detected format, for image export
func (s *CatalogServiceImpl) ImageGeometry() (types.Geometry, error) {
	if det, err := adfs.Detect(s.store); err == nil {
		return det.Geometry.Geometry(), nil
	}

	cat, err := s.readDFS()
	if err != nil {
		return types.Geometry{}, fmt.Errorf("%w: no ADFS or DFS catalogue", types.ErrUnknownFormat)
	}
	return cat.DFS[0].Geometry(len(cat.DFS)), nil
}
