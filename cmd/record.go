package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.aimuz.me/kzmacro/hook"
	appsvc "go.aimuz.me/kzmacro/internal/app"
	"go.aimuz.me/kzmacro/internal/types"
	"go.aimuz.me/kzmacro/player/robot"
)

var (
	recordOut  string
	recordName string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a macro until interrupted",
	Long: `Record keyboard and mouse input into a new profile until Ctrl+C is
pressed, then save it to the output file.

Key presses are stored as "Key <name>" blocks and mouse buttons as
"Button.<name> Down" / "Button.<name> Up" blocks, each with the delay since
the previous event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := appsvc.New(appsvc.Options{
			Config:   cfg,
			Source:   hook.NewHub(cfg.HookStartTimeout()),
			Synth:    robot.New(),
			Notify:   printBlock,
			Headless: true,
		})
		defer svc.Shutdown()

		if recordName != "" {
			if err := svc.RenameProfile(0, recordName); err != nil {
				return err
			}
		}

		if err := svc.StartRecording(); err != nil {
			return err
		}
		fmt.Println("Recording... press Ctrl+C to stop.")

		<-ctx.Done()
		svc.StopRecording()

		blocks := svc.Profiles()[0].Blocks
		written, err := svc.Save(recordOut)
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved %d blocks to %s\n", len(blocks), written)
		return nil
	},
}

func printBlock(name string, data any) {
	if name != appsvc.EventBlockAdded {
		return
	}
	if e, ok := data.(types.BlockEvent); ok {
		fmt.Printf("%4d  %-24s +%dms\n", e.Index+1, e.Block.Label, e.Block.WaitMS)
	}
}

func init() {
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Output file (.json is appended when missing)")
	recordCmd.Flags().StringVarP(&recordName, "name", "n", "", "Profile name (default: "+types.DefaultProfileName+")")
	_ = recordCmd.MarkFlagRequired("out")
}
