package synth

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app/apptest"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app/catalog"
)

func TestHandleThenCatalogue(t *testing.T) {
	ctx := apptest.Context()
	require.NoError(t, afero.WriteFile(ctx.Fs, "/games.ssd", apptest.DFSImage("SYNTH"), 0o644))

	resp, err := Handle(ctx, &Request{ImagePath: "/games.ssd", RawPath: "/games.raw", Modulation: "fm"})
	require.NoError(t, err)
	assert.Equal(t, apptest.DFSGeometry, resp.Geometry)
	assert.Equal(t, 20, resp.Report.Sectors)
	assert.Equal(t, "fm", resp.Modulation)

	cat, err := catalog.Handle(ctx, &catalog.Request{Target: app.CaptureTarget{RawPath: "/games.raw"}})
	require.NoError(t, err)
	assert.Equal(t, "SYNTH", cat.Catalogue.Title)

	var buf bytes.Buffer
	require.NoError(t, FormatOutput(&buf, resp, "table"))
	assert.Contains(t, buf.String(), "20 sectors on 2 tracks, 1 heads")
}

func TestRequestGeometry(t *testing.T) {
	config := apptest.Config()
	config.Heads = 2

	g := (&Request{ImagePath: "disc.dsd"}).Geometry(config)
	assert.Equal(t, 2, g.Heads)
	assert.True(t, g.Interleaved)

	g = (&Request{ImagePath: "disc.ssd"}).Geometry(config)
	assert.Equal(t, 1, g.Heads)
	assert.False(t, g.Interleaved)

	g = (&Request{ImagePath: "disc.img", Tracks: 40, SectorsPerTrack: 16}).Geometry(config)
	assert.Equal(t, 40, g.Tracks)
	assert.Equal(t, 16, g.SectorsPerTrack)
	assert.Equal(t, 256, g.SectorSize)
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{"valid", Request{ImagePath: "a.ssd", RawPath: "a.raw", Modulation: "mfm"}, false},
		{"missing image", Request{RawPath: "a.raw", Modulation: "fm"}, true},
		{"missing output", Request{ImagePath: "a.ssd", Modulation: "fm"}, true},
		{"same path", Request{ImagePath: "a.ssd", RawPath: "a.ssd", Modulation: "fm"}, true},
		{"unknown modulation", Request{ImagePath: "a.ssd", RawPath: "a.raw", Modulation: "rll"}, true},
		{"three heads", Request{ImagePath: "a.ssd", RawPath: "a.raw", Modulation: "fm", Heads: 3}, true},
		{"negative speed", Request{ImagePath: "a.ssd", RawPath: "a.raw", Modulation: "fm", Speed: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
