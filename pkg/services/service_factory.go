package services

import (
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-fluxdisk/internal/disk"
	core "github.com/deploymenttheory/go-fluxdisk/internal/services"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// ServiceFactory opens one capture file and hands out the services working on it
type ServiceFactory struct {
	fs      afero.Fs
	rawPath string
	config  *types.CaptureConfig

	raw            *disk.RawCapture
	captureService *core.CaptureServiceImpl
	catalogService *core.CatalogServiceImpl
	refetchService *core.CatalogServiceImpl
	imageService   *core.ImageServiceImpl
	mu             sync.RWMutex
	initialized    bool
}

// NewServiceFactory creates a factory for a capture file. Nothing is opened
// until the first service is requested.
func NewServiceFactory(fs afero.Fs, rawPath string, config *types.CaptureConfig) *ServiceFactory {
	return &ServiceFactory{fs: fs, rawPath: rawPath, config: config}
}

// Initialize opens the capture file and creates all services
func (sf *ServiceFactory) Initialize() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if sf.initialized {
		return nil
	}
	if sf.config == nil {
		return fmt.Errorf("%w: no capture configuration", ErrServiceNotAvailable)
	}

	raw, err := disk.OpenRawCapture(sf.fs, sf.rawPath, sf.config)
	if err != nil {
		return err
	}

	capture, err := core.NewCaptureService(raw, sf.config)
	if err != nil {
		raw.Close()
		return err
	}

	// capture service is the foundation, the others read its store
	sf.catalogService, _ = core.NewCatalogService(capture.Store(), nil)
	sf.refetchService, _ = core.NewCatalogService(capture.Store(), capture)
	sf.imageService, _ = core.NewImageService(capture.Store())

	sf.raw = raw
	sf.captureService = capture
	sf.initialized = true
	return nil
}

// CaptureService returns the capture service of the file
func (sf *ServiceFactory) CaptureService() (*core.CaptureServiceImpl, error) {
	if err := sf.Initialize(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.captureService, nil
}

// CatalogService returns a catalog service. With refetch set, tree walks
// re-capture tracks holding missing sectors.
func (sf *ServiceFactory) CatalogService(refetch bool) (*core.CatalogServiceImpl, error) {
	if err := sf.Initialize(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	if refetch {
		return sf.refetchService, nil
	}
	return sf.catalogService, nil
}

// ImageService returns the image export service
func (sf *ServiceFactory) ImageService() (*core.ImageServiceImpl, error) {
	if err := sf.Initialize(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.imageService, nil
}

// Raw returns the opened capture file, nil before initialisation
func (sf *ServiceFactory) Raw() *disk.RawCapture {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.raw
}

// Shutdown closes the capture file and drops all services
func (sf *ServiceFactory) Shutdown() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if !sf.initialized {
		return nil
	}

	err := sf.raw.Close()

	sf.raw = nil
	sf.captureService = nil
	sf.catalogService = nil
	sf.refetchService = nil
	sf.imageService = nil
	sf.initialized = false

	return err
}

// IsInitialized returns whether the factory has opened its capture file
func (sf *ServiceFactory) IsInitialized() bool {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.initialized
}

// RenderImage encodes a flat sector image as a raw capture file
func RenderImage(fs afero.Fs, imagePath, rawPath string, config *types.CaptureConfig, opts SynthOptions) (*SynthReport, error) {
	return core.RenderImage(fs, imagePath, rawPath, config, opts)
}

// Common errors
var (
	ErrServiceNotAvailable = fmt.Errorf("service not available")
)
