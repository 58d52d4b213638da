package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-fluxdisk/internal/disk"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool
	Out          io.Writer

	// Configuration
	ConfigFile string
	Config     *types.CaptureConfig
	Fs         afero.Fs

	// Common timeouts
	DefaultTimeout time.Duration

	// Progress reporting
	ProgressCallback func(message string, percent int)
}

// NewContext creates a new application context on the OS filesystem
func NewContext() *Context {
	return &Context{
		Context:        context.Background(),
		OutputFormat:   "table",
		Out:            os.Stdout,
		Fs:             afero.NewOsFs(),
		DefaultTimeout: 30 * time.Minute,
	}
}

// LoadConfig loads the capture configuration once, honouring ConfigFile
func (c *Context) LoadConfig() (*types.CaptureConfig, error) {
	if c.Config != nil {
		return c.Config, nil
	}
	config, err := disk.LoadCaptureConfigFs(c.Fs, c.ConfigFile)
	if err != nil {
		return nil, NewError(ErrCodeConfig, "failed to load configuration", err)
	}
	c.Config = config
	return config, nil
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(string, int)) {
	c.ProgressCallback = callback
}

// NewProgressPrinter returns a progress callback writing each update to w
// with an estimate of the time left
func NewProgressPrinter(w io.Writer) func(string, int) {
	update := &ProgressUpdate{Total: 100, StartedAt: time.Now()}
	return func(message string, percent int) {
		update.Message = message
		update.Completed = int64(percent)
		update.ElapsedTime = time.Since(update.StartedAt)

		line := fmt.Sprintf("[%3d%%] %s", update.Percent(), update.Message)
		if eta := update.ETA(); eta >= time.Second {
			line += fmt.Sprintf(" (%v left)", eta.Round(time.Second))
		}
		fmt.Fprintln(w, line)
	}
}

// Progress reports progress if callback is set
func (c *Context) Progress(message string, percent int) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(message, percent)
	}
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if !c.Quiet && c.Verbose {
		fmt.Fprintln(os.Stderr, message)
	}
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet {
		fmt.Fprintln(os.Stderr, "Error:", message)
	}
}
