package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// FormatOutput writes the analyses in the requested output format
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

func formatTable(out io.Writer, response *Response) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TRACK\tHEAD\tDENSITY\tPEAKS (us)\tMODULATION\tIDS\tDATA\tBAD\tRESYNCS\n")
	fmt.Fprintf(w, "-----\t----\t-------\t----------\t----------\t---\t----\t---\t-------\n")

	for _, a := range response.Tracks {
		peaks := make([]string, len(a.Flux.PeakMicros))
		for i, p := range a.Flux.PeakMicros {
			peaks[i] = fmt.Sprintf("%.2f", p)
		}
		density := a.Flux.DensityName
		if a.Flux.Fallback {
			density += "*"
		}

		names := maps.Keys(a.Sessions)
		slices.Sort(names)
		for i, name := range names {
			s := a.Sessions[name]
			if i == 0 {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t", a.Track, a.Head, density, strings.Join(peaks, " "))
			} else {
				fmt.Fprintf(w, "\t\t\t\t")
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", name, s.IDGood, s.DataGood, s.IDBad+s.DataBad, s.Resyncs)
		}
	}
	return w.Flush()
}
