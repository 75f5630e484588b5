package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/retroboard/go/clients"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/poller"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session>",
	Short: "Follow a session's events from a running server",
	Long: `Follow a session's events by polling a running server, printing one
JSON line per event. <session> is the numeric id or the share token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		token, _ := cmd.Flags().GetString("client-token")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if token == "" {
			token = uuid.NewString()
		}

		enc := json.NewEncoder(os.Stdout)
		printEvent := func(_ context.Context, ev events.Event) {
			if err := enc.Encode(ev); err != nil {
				fmt.Fprintf(os.Stderr, "write event: %v\n", err)
			}
		}

		client := clients.NewRetroboardClient(server, token)
		client.SetTimeout(requestTimeout(cfg.PollInterval))
		p := poller.New(client, args[0], poller.Handlers{Timer: printEvent, Board: printEvent}, cfg.PollInterval, nil)
		p.Run(cmd.Context())

		status := p.Status()
		fmt.Fprintf(os.Stderr, "received %d events, cursor %d\n", status.EventCount, status.Cursor)
		return nil
	},
}

// requestTimeout bounds one poll so a hung request cannot stall the loop
// for more than a few ticks.
func requestTimeout(interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = poller.DefaultInterval
	}
	return 3 * interval
}

func init() {
	watchCmd.Flags().String("server", "http://localhost:8080", "Board server base URL")
	watchCmd.Flags().String("client-token", "", "Client token to identify as (random when empty)")
}
