package image

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// FormatOutput writes the export summary in the requested output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(w io.Writer, response *Response) error {
	g := response.Geometry
	layout := "sequenced"
	if g.Interleaved {
		layout = "interleaved"
	}

	fmt.Fprintf(w, "Image:    %s\n", response.OutputPath)
	if response.Format != "" {
		fmt.Fprintf(w, "Format:   %s\n", response.Format)
	}
	fmt.Fprintf(w, "Geometry: %d tracks, %d heads, %d x %d byte sectors (%s)\n",
		g.Tracks, g.Heads, g.SectorsPerTrack, g.SectorSize, layout)

	if e := response.Export; e != nil {
		fmt.Fprintf(w, "Written:  %d sectors, %d bad\n", e.Written, e.Bad)
		if len(e.Missing) > 0 {
			fmt.Fprintf(w, "Missing:  %d sectors\n", len(e.Missing))
			for _, addr := range e.Missing {
				fmt.Fprintf(w, "  %s\n", addr)
			}
		}
	}
	fmt.Fprintf(w, "Time:     %v\n", response.WriteTime)
	return nil
}
