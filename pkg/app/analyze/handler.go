package analyze

import (
	"fmt"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

// Handle samples the selected tracks once each and reports what every
// modulation decoder saw, without keeping any sector
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := app.OpenSession(ctx, &req.Target)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	g := session.Capture.Geometry()
	tracks := selection(req.Track, g.Tracks)
	heads := selection(req.Head, g.Heads)

	response := &Response{}
	total := len(tracks) * len(heads)
	for _, track := range tracks {
		for _, head := range heads {
			analysis, err := session.Capture.AnalyzeTrack(ctx, track, head)
			if err != nil {
				return response, app.NewError(app.ErrCodeCaptureAccess, fmt.Sprintf("failed to analyse track %d head %d", track, head), err)
			}
			response.Tracks = append(response.Tracks, analysis)
			ctx.Progress(fmt.Sprintf("Track %d head %d", track, head), len(response.Tracks)*100/total)
		}
	}
	return response, nil
}

func selection(want, count int) []int {
	if want != AllTracks {
		return []int{want}
	}
	all := make([]int, count)
	for i := range all {
		all[i] = i
	}
	return all
}
