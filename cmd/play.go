package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.aimuz.me/kzmacro/internal/types"
	"go.aimuz.me/kzmacro/player"
	"go.aimuz.me/kzmacro/player/robot"
	"go.aimuz.me/kzmacro/profile"
)

var (
	playFile    string
	playProfile string
	playDelay   time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Replay a macro from a profiles file",
	Long: `Replay one profile of a profiles file with its recorded timing.

The profile is selected by name or by its 1-based position as printed by
'kzmacro list'. Without --profile the first profile is played. Ctrl+C stops
playback before the next block.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := profile.ReadFile(playFile)
		if err != nil {
			return err
		}
		p, err := selectProfile(profiles, playProfile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if playDelay > 0 {
			fmt.Printf("Playing %q in %s...\n", p.Name, playDelay)
			select {
			case <-time.After(playDelay):
			case <-ctx.Done():
				return nil
			}
		}

		pl := player.New(robot.New(), player.Options{SettleDelay: cfg.SettleDelay()})
		res, err := pl.Play(ctx, p.Blocks)
		fmt.Printf("Dispatched %d blocks (%d skipped, %d failed) in %s\n",
			res.Dispatched, res.Skipped, res.Failed, res.Elapsed.Round(time.Millisecond))
		if errors.Is(err, player.ErrCancelled) {
			return nil
		}
		return err
	},
}

// selectProfile finds a profile by exact name, then by 1-based position.
// An empty selector picks the first profile.
func selectProfile(profiles []types.Profile, sel string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, profile.ErrIndex
	}
	if sel == "" {
		return profiles[0], nil
	}
	for _, p := range profiles {
		if p.Name == sel {
			return p, nil
		}
	}
	if n, err := strconv.Atoi(sel); err == nil && n >= 1 && n <= len(profiles) {
		return profiles[n-1], nil
	}
	return types.Profile{}, fmt.Errorf("profile %q: %w", sel, profile.ErrIndex)
}

func init() {
	playCmd.Flags().StringVarP(&playFile, "file", "f", "", "Profiles file to read")
	playCmd.Flags().StringVarP(&playProfile, "profile", "p", "", "Profile name or 1-based position (default: first)")
	playCmd.Flags().DurationVarP(&playDelay, "delay", "d", 0, "Wait before playing, e.g. 3s")
	_ = playCmd.MarkFlagRequired("file")
}
