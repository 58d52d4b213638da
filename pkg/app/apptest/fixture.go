// Package apptest builds rendered disks for exercising the app handlers
// without hardware.
package apptest

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
	"github.com/deploymenttheory/go-fluxdisk/pkg/services"
)

// DFSGeometry is a two track single sided DFS disc
var DFSGeometry = types.Geometry{Tracks: 2, Heads: 1, SectorsPerTrack: 10, SectorSize: 256}

// FileData is the content of $.HELLO on the fixture disc
var FileData = bytes.Repeat([]byte("HELLO WORLD "), 40)[:0x1E0]

// Config returns a capture configuration sized for DFSGeometry
func Config() *types.CaptureConfig {
	config := types.DefaultCaptureConfig()
	config.Tracks = DFSGeometry.Tracks
	config.Heads = DFSGeometry.Heads
	config.SectorsPerTrack = DFSGeometry.SectorsPerTrack
	config.Retries = 2
	config.Modulations = []string{"fm"}
	config.TrackBytes = 1 << 19
	config.ParallelDecode = false
	return &config
}

// Context returns an app context over an in-memory filesystem
func Context() *app.Context {
	ctx := app.NewContext()
	ctx.Fs = afero.NewMemMapFs()
	ctx.Config = Config()
	ctx.Out = &bytes.Buffer{}
	return ctx
}

// DFSImage returns a flat image whose catalogue holds $.HELLO at sector 2
func DFSImage(title string) []byte {
	image := make([]byte, DFSGeometry.Size())
	s0, s1 := image[:256], image[256:512]

	for i := 0; i < len(title) && i < 12; i++ {
		if i < 8 {
			s0[i] = title[i]
		} else {
			s1[i-8] = title[i]
		}
	}
	s1[5] = 8
	s1[6] = 3 << 4
	s1[7] = byte(DFSGeometry.Tracks * DFSGeometry.SectorsPerTrack)

	copy(s0[8:], "HELLO  $")
	copy(s1[8:], []byte{0x00, 0x19, 0x23, 0x80, byte(len(FileData)), byte(len(FileData) >> 8), 0x00, 0x02})
	copy(image[512:], FileData)
	return image
}

// RenderDisk writes image into the context filesystem and renders it as FM
// flux at rawPath
func RenderDisk(t testing.TB, ctx *app.Context, image []byte, rawPath string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(ctx.Fs, rawPath+".ssd", image, 0o644))
	_, err := services.RenderImage(ctx.Fs, rawPath+".ssd", rawPath, ctx.Config, services.SynthOptions{
		Modulation: types.ModulationFM,
		Geometry:   DFSGeometry,
	})
	require.NoError(t, err)
}
