package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/xwsync/internal/api/response"
	"github.com/mcoot/xwsync/internal/factory"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/session"
)

func newPlayCmd() *cobra.Command {
	var (
		robots    int
		iq        int
		duplicate bool
		seed      string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a robot game in-process and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if robots < 1 || robots > model.MaxPlayers {
				return fmt.Errorf("robots must be 1-%d", model.MaxPlayers)
			}

			app, err := factory.New(cmd.Context(), factory.Config{
				DictionaryPath: cfg.Dictionary,
				Logger:         cliLogger(),
				Seed:           seed,
			})
			if err != nil {
				return fmt.Errorf("loading dictionary %s: %w", cfg.Dictionary, err)
			}
			defer app.Close()

			s, err := app.Sessions.Create(cmd.Context(), session.CreateRequest{
				Players:   robotSeats(robots, iq),
				Duplicate: duplicate,
			})
			if err != nil {
				return err
			}
			if _, err := app.Sessions.PlayRobots(cmd.Context(), s.ID()); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(response.PlayResponse{Game: s.Summary(), Moves: s.Moves()})
			return nil
		},
	}

	cmd.Flags().IntVar(&robots, "robots", 2, "Number of robot players")
	cmd.Flags().IntVar(&iq, "iq", 0, "Robot strength 1-100; 0 plays the best move")
	cmd.Flags().BoolVar(&duplicate, "duplicate", false, "Every robot plays from the same tray")
	cmd.Flags().StringVar(&seed, "seed", "", "Seed for a reproducible game")
	cmd.Flags().StringVar(&cfg.Dictionary, "dict", cfg.Dictionary, "Dictionary file, one word per line (env: XWSYNC_DICT)")

	return cmd
}

// robotSeats names n robots
func robotSeats(n, iq int) []session.PlayerRequest {
	out := make([]session.PlayerRequest, n)
	for i := range out {
		out[i] = session.PlayerRequest{Name: "robot" + strconv.Itoa(i+1), Robot: true, IQ: iq}
	}
	return out
}

// cliLogger writes warnings to stderr, or everything with --verbose
func cliLogger() *slog.Logger {
	if cfg.Verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if cfg.Output == "json" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
