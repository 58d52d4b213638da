package disk

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

func TestLoadCaptureConfigDefaults(t *testing.T) {
	config, err := LoadCaptureConfigFs(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCaptureConfig(), *config)
}

func TestLoadCaptureConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	yaml := "retries: 3\nheads: 1\nmodulations: [mfm, fm]\nraw_layout: interleaved\nuse_pll: true\n"
	require.NoError(t, afero.WriteFile(fs, "/etc/capture.yaml", []byte(yaml), 0o644))

	config, err := LoadCaptureConfigFs(fs, "/etc/capture.yaml")
	require.NoError(t, err)
	assert.Equal(t, 3, config.Retries)
	assert.Equal(t, 1, config.Heads)
	assert.Equal(t, []string{"mfm", "fm"}, config.Modulations)
	assert.Equal(t, string(types.LayoutInterleaved), config.RawLayout)
	assert.True(t, config.UsePLL)
	assert.Equal(t, 80, config.Tracks)
}

func TestLoadCaptureConfigEnvironment(t *testing.T) {
	t.Setenv("FLUXDISK_TRACKS", "40")

	config, err := LoadCaptureConfigFs(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, 40, config.Tracks)
}

func TestLoadCaptureConfigRejectsInvalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("heads: 3\n"), 0o644))

	_, err := LoadCaptureConfigFs(fs, "/bad.yaml")
	assert.Error(t, err)

	_, err = LoadCaptureConfigFs(fs, "/missing.yaml")
	assert.Error(t, err)
}

func rawConfig(layout types.RawLayout) *types.CaptureConfig {
	config := types.DefaultCaptureConfig()
	config.Tracks = 3
	config.Heads = 2
	config.TrackBytes = 4
	config.RawLayout = string(layout)
	return &config
}

func trackBytes(track, head int) []byte {
	v := byte(track<<4 | head)
	return []byte{v, v, v, v}
}

func TestRawCaptureRoundTrip(t *testing.T) {
	for _, layout := range []types.RawLayout{types.LayoutSequenced, types.LayoutInterleaved} {
		t.Run(string(layout), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			config := rawConfig(layout)

			w, err := CreateRawCapture(fs, "/disk.raw", config)
			require.NoError(t, err)
			for track := 0; track < 3; track++ {
				for head := 0; head < 2; head++ {
					require.NoError(t, w.WriteTrack(track, head, trackBytes(track, head)))
				}
			}
			require.NoError(t, w.Close())

			r, err := OpenRawCapture(fs, "/disk.raw", config)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, 3, r.Tracks())
			assert.Equal(t, 2, r.Heads())

			ctx := context.Background()
			for track := 0; track < 3; track++ {
				for head := 0; head < 2; head++ {
					require.NoError(t, r.Seek(track))
					require.NoError(t, r.SelectSide(head))
					samples, err := r.SampleTrack(ctx)
					require.NoError(t, err)
					assert.Equal(t, trackBytes(track, head), samples)
				}
			}
		})
	}
}

func TestRawCaptureInterleavedOffsets(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := rawConfig(types.LayoutInterleaved)

	w, err := CreateRawCapture(fs, "/disk.raw", config)
	require.NoError(t, err)
	require.NoError(t, w.WriteTrack(1, 0, []byte{0xAA}))
	require.NoError(t, w.WriteTrack(0, 1, []byte{0xBB, 0xCC, 0xDD, 0xEE, 0xFF}))
	require.NoError(t, w.Close())

	data, err := afero.ReadFile(fs, "/disk.raw")
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, []byte{0xBB, 0xCC, 0xDD, 0xEE}, data[4:8])
	assert.Equal(t, []byte{0xAA, 0, 0, 0}, data[8:12])
}

func TestRawCaptureCacheAndBounds(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := rawConfig(types.LayoutSequenced)
	w, err := CreateRawCapture(fs, "/disk.raw", config)
	require.NoError(t, err)
	require.NoError(t, w.WriteTrack(0, 0, []byte{1, 2, 3, 4}))
	require.NoError(t, w.Close())

	r, err := OpenRawCapture(fs, "/disk.raw", config)
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	first, err := r.SampleTrack(ctx)
	require.NoError(t, err)
	first[0] = 0xFF

	second, err := r.SampleTrack(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, second, "cached copy must not alias")

	assert.Equal(t, int64(1), r.Stats().TracksRead.Load())
	assert.Equal(t, int64(1), r.Stats().CacheHits.Load())
	assert.InDelta(t, 50.0, r.CacheHitRate(), 0.001)

	assert.ErrorIs(t, r.Seek(3), types.ErrAddressOutOfRange)
	assert.ErrorIs(t, r.SelectSide(2), types.ErrAddressOutOfRange)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.SampleTrack(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenRawCaptureTooShort(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/short.raw", []byte{1, 2, 3}, 0o644))

	_, err := OpenRawCapture(fs, "/short.raw", rawConfig(types.LayoutSequenced))
	assert.ErrorIs(t, err, types.ErrNoFluxData)
}

func TestFlatImageLayout(t *testing.T) {
	geometry := types.Geometry{Tracks: 2, Heads: 2, SectorsPerTrack: 2, SectorSize: 4, FirstSector: 1}

	tests := []struct {
		name        string
		interleaved bool
		offset      int
	}{
		{"sequenced", false, 2*8 + 4},
		{"interleaved", true, 1*8 + 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			g := geometry
			g.Interleaved = tt.interleaved

			img, err := CreateFlatImage(fs, "/out.img", g)
			require.NoError(t, err)
			require.NoError(t, img.WriteSector(0, 1, 2, []byte{9, 8, 7, 6, 5}))
			assert.ErrorIs(t, img.WriteSector(0, 0, 0, []byte{1}), types.ErrAddressOutOfRange)
			assert.ErrorIs(t, img.WriteSector(2, 0, 1, []byte{1}), types.ErrAddressOutOfRange)
			assert.Equal(t, 1, img.Written())
			require.NoError(t, img.Close())

			data, err := afero.ReadFile(fs, "/out.img")
			require.NoError(t, err)
			require.Len(t, data, 32)
			assert.Equal(t, []byte{9, 8, 7, 6}, data[tt.offset:tt.offset+4])

			zeros := 0
			for _, b := range data {
				if b == 0 {
					zeros++
				}
			}
			assert.Equal(t, 28, zeros)
		})
	}
}

func TestImageGeometry(t *testing.T) {
	base := types.Geometry{Tracks: 80, Heads: 2, SectorsPerTrack: 10, SectorSize: 256}

	ssd := ImageGeometry("game.SSD", base)
	assert.Equal(t, 1, ssd.Heads)
	assert.False(t, ssd.Interleaved)

	assert.True(t, ImageGeometry("game.dsd", base).Interleaved)
	assert.True(t, ImageGeometry("disc.adl", base).Interleaved)
	assert.Equal(t, base, ImageGeometry("disc.img", base))
}
