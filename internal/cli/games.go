package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/xwsync/internal/api/response"
	"github.com/mcoot/xwsync/internal/services/session"
)

func newGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Game commands against a running server",
	}

	cmd.AddCommand(newGamesListCmd())
	cmd.AddCommand(newGamesCreateCmd())
	cmd.AddCommand(newGamesShowCmd())
	cmd.AddCommand(newGamesStackCmd())
	cmd.AddCommand(newGamesDeleteCmd())
	cmd.AddCommand(newGamesPlayCmd())
	cmd.AddCommand(newGamesMoveCmd())
	cmd.AddCommand(newGamesActCmd())

	return cmd
}

func gamePath(id string, suffix string) string {
	return "/api/v1/games/" + url.PathEscape(id) + suffix
}

func newGamesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored games, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GameList

			if err := client.Get("/api/v1/games", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGamesCreateCmd() *cobra.Command {
	var (
		players   []string
		duplicate bool
		phonies   string
		timer     int
		host      bool
		transport string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game",
		Long: `Create a game. Seats are given in order with --player:
  name             a human on this server
  robot:name[:iq]  a robot, strongest when iq is left out
  remote           a seat for a guest device (with --host)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seats, err := parsePlayers(players)
			if err != nil {
				return err
			}
			req := session.CreateRequest{
				Players:      seats,
				Duplicate:    duplicate,
				TimerSeconds: timer,
				Transport:    session.TransportKind(transport),
			}
			if err := req.Phonies.UnmarshalText([]byte(phonies)); err != nil {
				return err
			}

			path := "/api/v1/games"
			if host {
				path += "/host"
			}

			var result response.Game
			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&players, "player", "p", []string{"robot:robot1", "robot:robot2"}, "Seat: name, robot:name[:iq] or remote; repeatable")
	cmd.Flags().BoolVar(&duplicate, "duplicate", false, "Every player plays from the same tray")
	cmd.Flags().StringVar(&phonies, "phonies", "ignore", "Unknown words: ignore, warn or disallow")
	cmd.Flags().IntVar(&timer, "timer", 0, "Seconds per player; 0 disables the clock")
	cmd.Flags().BoolVar(&host, "host", false, "Host the game for guest devices")
	cmd.Flags().StringVar(&transport, "transport", "", "Guest transport for hosted games: websocket or redis")

	return cmd
}

func newGamesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Get(gamePath(args[0], ""), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGamesStackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stack <id>",
		Short: "Show a game's move stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Stack

			if err := client.Get(gamePath(args[0], "/stack"), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGamesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(gamePath(args[0], "")); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Deleted game %s", args[0]))
			return nil
		},
	}
}

func newGamesPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <id>",
		Short: "Let the robots finish a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.PlayResponse

			if err := client.Post(gamePath(args[0], "/play"), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newGamesMoveCmd() *cobra.Command {
	var player int

	cmd := &cobra.Command{
		Use:   "move <id> <cell=letter>...",
		Short: "Play tiles, e.g. move <id> H8=C I8=A J8=t",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tiles, err := parsePlacements(args[1:])
			if err != nil {
				return err
			}
			return postAction(args[0], session.Action{Kind: session.ActionMove, Player: player, Tiles: tiles})
		},
	}

	cmd.Flags().IntVar(&player, "player", 0, "Player index")
	return cmd
}

func newGamesActCmd() *cobra.Command {
	var (
		player int
		trade  string
		text   string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "act <id> <pass|trade|undo|end|resign|chat|pause|unpause>",
		Short: "Take a turn action other than playing tiles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := session.Action{
				Kind:   session.ActionKind(args[1]),
				Player: player,
				Trade:  trade,
				Text:   text,
				Limit:  limit,
			}
			if a.Kind == session.ActionMove {
				return fmt.Errorf("use the move command to play tiles")
			}
			return postAction(args[0], a)
		},
	}

	cmd.Flags().IntVar(&player, "player", 0, "Player index")
	cmd.Flags().StringVar(&trade, "tiles", "", "Letters to trade, _ for a blank")
	cmd.Flags().StringVar(&text, "text", "", "Chat or pause message")
	cmd.Flags().IntVar(&limit, "limit", 0, "Most moves to undo; 0 undoes back to the last human move")
	return cmd
}

func postAction(id string, a session.Action) error {
	var result response.PlayResponse
	if err := client.Post(gamePath(id, "/actions"), a, &result); err != nil {
		return err
	}
	NewOutput(cfg.Output).Print(result)
	return nil
}
