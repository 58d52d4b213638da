package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-fluxdisk/internal/parsers/dfs"
)

// FormatOutput writes the catalogue in the requested output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable prints the disc summary followed by the tree or file list
func formatTable(out io.Writer, response *Response) error {
	cat := response.Catalogue
	fmt.Fprintf(out, "Format: %s\n", cat.Format)
	fmt.Fprintf(out, "Title:  %s\n", cat.Title)
	fmt.Fprintf(out, "Boot:   %d\n", cat.BootOption)
	fmt.Fprintf(out, "Size:   %d sectors, %d free\n\n", cat.SectorCount, cat.FreeSectors)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if len(cat.DFS) > 0 {
		fmt.Fprintf(w, "SIDE\tNAME\tLOCK\tLOAD\tEXEC\tLENGTH\tSECTOR\n")
		fmt.Fprintf(w, "----\t----\t----\t----\t----\t------\t------\n")
		for side, c := range cat.DFS {
			for _, f := range c.Files {
				lock := ""
				if f.Locked {
					lock = "L"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%06X\t%06X\t%06X\t%03X\n",
					side, f.FullName(), lock, f.Load, f.Exec, f.Length, f.StartSector)
			}
			fmt.Fprintf(w, "%d\t(%s, boot %s)\t\t\t\t\t\n", side, c.Title, dfs.BootOptionNames[c.BootOption])
		}
		return w.Flush()
	}

	fmt.Fprintf(w, "PATH\tATTR\tINFO\tLENGTH\tADDRESS\n")
	fmt.Fprintf(w, "----\t----\t----\t------\t-------\n")
	for _, line := range response.Lines() {
		path := strings.Repeat("  ", line.Depth) + line.Path
		if line.Error != "" {
			fmt.Fprintf(w, "%s\t%s\t(%s)\t%08X\t%06X\n", path, line.Attributes, line.Error, line.Length, line.Address)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%08X\t%06X\n", path, line.Attributes, line.Info, line.Length, line.Address)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if report := response.Capture; report != nil {
		fmt.Fprintf(out, "\n%d sectors recovered (%d bad) in %v\n", report.Summary.Good+report.Summary.Bad, report.Summary.Bad, response.ReadTime)
		for _, e := range report.Errors {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}
	return nil
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}
