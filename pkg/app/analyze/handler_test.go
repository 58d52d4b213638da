package analyze

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
	"github.com/deploymenttheory/go-fluxdisk/pkg/app/apptest"
)

func TestHandle(t *testing.T) {
	ctx := apptest.Context()
	apptest.RenderDisk(t, ctx, apptest.DFSImage("ANALYSE"), "/disk.raw")

	t.Run("single track", func(t *testing.T) {
		resp, err := Handle(ctx, &Request{Target: app.CaptureTarget{RawPath: "/disk.raw"}, Track: 1, Head: 0})
		require.NoError(t, err)
		require.Len(t, resp.Tracks, 1)

		a := resp.Tracks[0]
		assert.Equal(t, 1, a.Track)
		assert.False(t, a.Flux.Fallback)
		require.Contains(t, a.Sessions, "fm")
		assert.Equal(t, 10, a.Sessions["fm"].IDGood)
		assert.Equal(t, 10, a.Sessions["fm"].DataGood)
	})

	t.Run("all tracks", func(t *testing.T) {
		resp, err := Handle(ctx, &Request{Target: app.CaptureTarget{RawPath: "/disk.raw"}, Track: AllTracks, Head: AllTracks})
		require.NoError(t, err)
		assert.Len(t, resp.Tracks, 2)

		var buf bytes.Buffer
		require.NoError(t, FormatOutput(&buf, resp, "table"))
		assert.Contains(t, buf.String(), "MODULATION")
		assert.Contains(t, buf.String(), "fm")
	})

	t.Run("track out of range", func(t *testing.T) {
		_, err := Handle(ctx, &Request{Target: app.CaptureTarget{RawPath: "/disk.raw"}, Track: 5, Head: 0})
		assert.Error(t, err)
	})
}

func TestRequest_Validate(t *testing.T) {
	target := app.CaptureTarget{RawPath: "/disk.raw"}
	assert.NoError(t, (&Request{Target: target, Track: AllTracks, Head: AllTracks}).Validate())
	assert.NoError(t, (&Request{Target: target, Track: 79, Head: 1}).Validate())
	assert.Error(t, (&Request{Target: target, Track: -2}).Validate())
	assert.Error(t, (&Request{Target: target, Head: 2}).Validate())
	assert.Error(t, (&Request{Track: 0}).Validate())
}
