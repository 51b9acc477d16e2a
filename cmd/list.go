package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go.aimuz.me/kzmacro/internal/types"
	"go.aimuz.me/kzmacro/profile"
)

var (
	listFile string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the profiles in a profiles file",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := profile.ReadFile(listFile)
		if err != nil {
			return err
		}

		if listJSON {
			data, err := json.MarshalIndent(summarize(profiles), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		return writeTable(os.Stdout, profiles)
	},
}

// profileSummary is one row of the list output.
type profileSummary struct {
	Position   int    `json:"position"`
	Name       string `json:"name"`
	Trigger    string `json:"trigger"`
	Blocks     int    `json:"blocks"`
	DurationMS int64  `json:"durationMs"`
}

func summarize(profiles []types.Profile) []profileSummary {
	out := make([]profileSummary, 0, len(profiles))
	for i, p := range profiles {
		out = append(out, profileSummary{
			Position:   i + 1,
			Name:       p.Name,
			Trigger:    p.TriggerLabel(),
			Blocks:     len(p.Blocks),
			DurationMS: playbackMS(p.Blocks),
		})
	}
	return out
}

// playbackMS is the time a replay spends waiting. The first block's wait is
// not replayed.
func playbackMS(blocks []types.Block) int64 {
	var total int64
	for i, b := range blocks {
		if i > 0 {
			total += b.WaitMS
		}
	}
	return total
}

func writeTable(w io.Writer, profiles []types.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTRIGGER\tBLOCKS\tDURATION")
	for _, s := range summarize(profiles) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", s.Position, s.Name, s.Trigger, s.Blocks,
			time.Duration(s.DurationMS)*time.Millisecond)
	}
	return tw.Flush()
}

func init() {
	listCmd.Flags().StringVarP(&listFile, "file", "f", "", "Profiles file to read")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output profiles as JSON")
	_ = listCmd.MarkFlagRequired("file")
}
