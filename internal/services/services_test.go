package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/deploymenttheory/go-fluxdisk/internal/disk"
	"github.com/deploymenttheory/go-fluxdisk/internal/diskstore"
	"github.com/deploymenttheory/go-fluxdisk/internal/synth"
	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

func pattern(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)*13 + seed
	}
	return data
}

func fmTrack(t *testing.T, sectors ...synth.Sector) []byte {
	t.Helper()
	samples, err := synth.Encode(synth.Track{Modulation: types.ModulationFM, Index: true, Sectors: sectors})
	require.NoError(t, err)
	return samples
}

// stubSampler replays a list of captures per track side, repeating the last one
type stubSampler struct {
	captures map[[2]int][][]byte
	reads    map[[2]int]int
	track    int
	side     int
}

func newStubSampler() *stubSampler {
	return &stubSampler{captures: make(map[[2]int][][]byte), reads: make(map[[2]int]int)}
}

func (s *stubSampler) add(track, side int, samples ...[]byte) {
	key := [2]int{track, side}
	s.captures[key] = append(s.captures[key], samples...)
}

func (s *stubSampler) Seek(track int) error     { s.track = track; return nil }
func (s *stubSampler) SelectSide(side int) error { s.side = side; return nil }
func (s *stubSampler) SampleRate() int           { return types.DefaultSampleRate }

func (s *stubSampler) SampleTrack(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := [2]int{s.track, s.side}
	list := s.captures[key]
	n := s.reads[key]
	s.reads[key]++
	if len(list) == 0 {
		return make([]byte, 64), nil
	}
	return list[min(n, len(list)-1)], nil
}

func testConfig(tracks, heads, spt int) *types.CaptureConfig {
	config := types.DefaultCaptureConfig()
	config.Tracks = tracks
	config.Heads = heads
	config.SectorsPerTrack = spt
	config.Retries = 3
	config.Modulations = []string{"fm"}
	config.TrackBytes = 1 << 17
	return &config
}

func TestCaptureSingleSectorFMTrack(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := testConfig(1, 1, 1)
	config.Modulations = types.DefaultCaptureConfig().Modulations

	data := pattern(256, 5)
	w, err := disk.CreateRawCapture(fs, "/track.raw", config)
	require.NoError(t, err)
	require.NoError(t, w.WriteTrack(0, 0, fmTrack(t, synth.Sector{SizeCode: 1, Data: data})))
	require.NoError(t, w.Close())

	raw, err := disk.OpenRawCapture(fs, "/track.raw", config)
	require.NoError(t, err)
	defer raw.Close()

	svc, err := NewCaptureService(raw, config)
	require.NoError(t, err)

	report, err := svc.Capture(context.Background())
	require.NoError(t, err)
	require.Len(t, report.TrackList, 1)
	assert.True(t, report.TrackList[0].Complete)
	assert.Equal(t, 1, report.TrackList[0].Attempts)
	assert.Equal(t, "fmsd", report.TrackList[0].Density)
	assert.Equal(t, 1, report.TrackList[0].Accepted["fm"])
	assert.NotEmpty(t, report.ID)

	physical := svc.Store().FindByPhysical(0, 0, 0)
	require.NotNil(t, physical)
	assert.True(t, physical.Good())
	assert.Equal(t, types.ModulationFM, physical.Modulation)
	assert.True(t, bytes.Equal(data, physical.Data))

	logical := svc.Store().FindByLogical(0, 0, 0)
	require.NotNil(t, logical)
	assert.Same(t, physical, logical)
}

func TestCaptureReplacesBadWithGood(t *testing.T) {
	data := pattern(256, 1)
	sampler := newStubSampler()
	sampler.add(0, 0,
		fmTrack(t, synth.Sector{SizeCode: 1, Data: data, BadDataCRC: true}),
		fmTrack(t, synth.Sector{SizeCode: 1, Data: data}),
	)

	svc, err := NewCaptureService(sampler, testConfig(1, 1, 1))
	require.NoError(t, err)

	tr, err := svc.CaptureTrack(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Attempts)
	assert.True(t, tr.Complete)
	assert.Equal(t, 2, tr.Accepted["fm"])
	assert.Equal(t, types.QualityGood, svc.Store().Status(0, 0, 0))
	assert.Equal(t, int64(2), svc.Stats().Attempts.Load())
}

func TestCaptureRetriesExhausted(t *testing.T) {
	sampler := newStubSampler()
	sampler.add(0, 0, fmTrack(t,
		synth.Sector{Sector: 0, SizeCode: 1, Data: pattern(256, 2)},
		synth.Sector{Sector: 1, SizeCode: 1, Data: pattern(256, 3), BadDataCRC: true},
	))

	svc, err := NewCaptureService(sampler, testConfig(1, 1, 2))
	require.NoError(t, err)

	report, err := svc.Capture(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRetriesExhausted)
	assert.Len(t, multierr.Errors(err), 1)
	assert.Len(t, report.Errors, 1)

	require.Len(t, report.TrackList, 1)
	tr := report.TrackList[0]
	assert.Equal(t, 3, tr.Attempts)
	assert.False(t, tr.Complete)
	assert.Equal(t, []int{1}, tr.Missing)
	assert.Equal(t, 2, tr.Sectors)
	assert.Len(t, report.IncompleteTracks(), 1)
	assert.Equal(t, types.QualityBad, svc.Store().Status(0, 0, 1))
}

func TestCaptureDetectsSingleSidedDisk(t *testing.T) {
	sampler := newStubSampler()
	for track := 0; track < 2; track++ {
		sampler.add(track, 0, fmTrack(t, synth.Sector{Track: track, SizeCode: 1, Data: pattern(256, byte(track))}))
	}

	svc, err := NewCaptureService(sampler, testConfig(2, 2, 1))
	require.NoError(t, err)

	report, err := svc.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, report.SingleSided)
	assert.Equal(t, 1, report.Heads)
	assert.Len(t, report.TrackList, 3)
	assert.Equal(t, 0, sampler.reads[[2]int{1, 1}])
	assert.Len(t, report.Checksums, 1)
	assert.Equal(t, svc.Store().VolumeChecksum(0), report.Checksums[0])
}

func TestCaptureCatalogOnly(t *testing.T) {
	sampler := newStubSampler()
	sampler.add(0, 0, fmTrack(t, synth.Sector{SizeCode: 1, Data: pattern(256, 0)}))

	config := testConfig(40, 1, 1)
	config.CatalogOnly = true
	svc, err := NewCaptureService(sampler, config)
	require.NoError(t, err)

	var progress []int
	svc.SetProgress(func(_ string, percent int) { progress = append(progress, percent) })

	report, err := svc.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Tracks)
	assert.Len(t, report.TrackList, 1)
	assert.Equal(t, []int{100}, progress)
}

func TestCaptureStopsOnCancel(t *testing.T) {
	svc, err := NewCaptureService(newStubSampler(), testConfig(2, 1, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeTrackLeavesStoreAlone(t *testing.T) {
	sampler := newStubSampler()
	sampler.add(0, 0, fmTrack(t, synth.Sector{SizeCode: 1, Data: pattern(256, 7)}))

	svc, err := NewCaptureService(sampler, testConfig(1, 1, 1))
	require.NoError(t, err)

	analysis, err := svc.AnalyzeTrack(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "fmsd", analysis.Flux.DensityName)
	require.Contains(t, analysis.Sessions, "fm")
	assert.Equal(t, 1, analysis.Sessions["fm"].DataGood)
	assert.Equal(t, 0, svc.Store().Len())
}

func TestNewCaptureServiceRejectsBadInput(t *testing.T) {
	_, err := NewCaptureService(nil, testConfig(1, 1, 1))
	assert.Error(t, err)

	config := testConfig(1, 1, 1)
	config.Modulations = []string{"fm", "morse"}
	_, err = NewCaptureService(newStubSampler(), config)
	assert.Error(t, err)
}

func dfsSectors(title string, sectors uint16) ([]byte, []byte) {
	s0 := make([]byte, 256)
	s1 := make([]byte, 256)
	copy(s0, title)
	s1[5] = 8
	s1[6] = 0x20 | byte(sectors>>8)&0x03
	s1[7] = byte(sectors)
	copy(s0[8:], "HELLO  $")
	s1[8+5] = 0x02
	s1[8+7] = 2
	return s0, s1
}

func addSector(store *diskstore.Store, track, head, sector int, data []byte, quality types.Quality) {
	store.Add(&types.Sector{
		Physical:    types.PhysicalAddress{Track: track, Head: head, Sector: sector},
		Logical:     types.LogicalAddress{Track: track, Head: head, Sector: sector, SizeCode: 1},
		IDQuality:   types.QualityGood,
		DataQuality: quality,
		Data:        data,
	})
}

func TestReadCatalogueDFS(t *testing.T) {
	store := diskstore.NewStore()
	s0, s1 := dfsSectors("GAMES", 400)
	addSector(store, 0, 0, 0, s0, types.QualityGood)
	addSector(store, 0, 0, 1, s1, types.QualityGood)

	svc, err := NewCatalogService(store, nil)
	require.NoError(t, err)

	cat, err := svc.ReadCatalogue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DFS", cat.Format)
	assert.Equal(t, "GAMES", cat.Title)
	assert.Equal(t, uint8(2), cat.BootOption)
	assert.Equal(t, uint32(400), cat.SectorCount)
	assert.Equal(t, uint32(396), cat.FreeSectors)
	require.Len(t, cat.DFS, 1)
	require.Len(t, cat.DFS[0].Files, 1)
	assert.Equal(t, "$.HELLO", cat.DFS[0].Files[0].FullName())

	geometry, err := svc.ImageGeometry()
	require.NoError(t, err)
	assert.Equal(t, types.Geometry{Tracks: 40, Heads: 1, SectorsPerTrack: 10, SectorSize: 256}, geometry)
}

func TestReadCatalogueDoubleSidedDFS(t *testing.T) {
	store := diskstore.NewStore()
	for head, title := range []string{"SIDE0", "SIDE1"} {
		s0, s1 := dfsSectors(title, 800)
		addSector(store, 0, head, 0, s0, types.QualityGood)
		addSector(store, 0, head, 1, s1, types.QualityGood)
	}

	svc, err := NewCatalogService(store, nil)
	require.NoError(t, err)

	cat, err := svc.ReadCatalogue(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.DFS, 2)
	assert.Equal(t, "SIDE1", cat.DFS[1].Title)

	geometry, err := svc.ImageGeometry()
	require.NoError(t, err)
	assert.Equal(t, 80, geometry.Tracks)
	assert.Equal(t, 2, geometry.Heads)
	assert.True(t, geometry.Interleaved)
}

func TestReadCatalogueUnknown(t *testing.T) {
	svc, err := NewCatalogService(diskstore.NewStore(), nil)
	require.NoError(t, err)

	_, err = svc.ReadCatalogue(context.Background())
	assert.ErrorIs(t, err, types.ErrUnknownFormat)

	_, err = svc.ImageGeometry()
	assert.ErrorIs(t, err, types.ErrUnknownFormat)
}

func TestExportImage(t *testing.T) {
	store := diskstore.NewStore()
	addSector(store, 0, 0, 0, pattern(256, 1), types.QualityGood)
	addSector(store, 0, 0, 2, pattern(256, 2), types.QualityBad)

	fs := afero.NewMemMapFs()
	geometry := types.Geometry{Tracks: 1, Heads: 1, SectorsPerTrack: 3, SectorSize: 256}
	sink, err := disk.CreateFlatImage(fs, "/out.ssd", geometry)
	require.NoError(t, err)

	svc, err := NewImageService(store)
	require.NoError(t, err)
	report, err := svc.Export(sink, geometry)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 1, report.Bad)
	assert.Len(t, report.Missing, 1)

	image, err := afero.ReadFile(fs, "/out.ssd")
	require.NoError(t, err)
	require.Len(t, image, 768)
	assert.Equal(t, pattern(256, 1), image[:256])
	assert.Equal(t, make([]byte, 256), image[256:512])
	assert.Equal(t, pattern(256, 2), image[512:])
}

func TestSynthRoundTripThroughCapture(t *testing.T) {
	fs := afero.NewMemMapFs()
	geometry := types.Geometry{Tracks: 2, Heads: 1, SectorsPerTrack: 2, SectorSize: 256}

	image := make([]byte, geometry.Size())
	for i := range image {
		image[i] = byte(i * 31)
	}
	require.NoError(t, afero.WriteFile(fs, "/in.ssd", image, 0o644))

	config := testConfig(80, 1, 2)
	synthReport, err := RenderImage(fs, "/in.ssd", "/disk.raw", config, SynthOptions{Modulation: types.ModulationFM, Geometry: geometry})
	require.NoError(t, err)
	assert.Equal(t, 4, synthReport.Sectors)

	raw, err := disk.OpenRawCapture(fs, "/disk.raw", config)
	require.NoError(t, err)
	defer raw.Close()

	capture, err := NewCaptureService(raw, config)
	require.NoError(t, err)
	assert.Equal(t, 2, capture.Geometry().Tracks)

	report, err := capture.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Summary.Good)

	sink, err := disk.CreateFlatImage(fs, "/out.ssd", geometry)
	require.NoError(t, err)
	exporter, err := NewImageService(capture.Store())
	require.NoError(t, err)
	_, err = exporter.Export(sink, geometry)
	require.NoError(t, err)

	out, err := afero.ReadFile(fs, "/out.ssd")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(image, out))
}
