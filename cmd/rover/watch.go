package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rover/pkg/protocol"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the events a running rover pushes to observers",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "event stream URL (default ws://localhost:<port>/ws/events)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := watchURL
	if url == "" {
		url = "ws://localhost:" + cfg.Server.Port + "/ws/events"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "👀 Watching %s\n", url)

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	// The server pushes the latest event on every tick, so repeats are skipped.
	var last protocol.RoverEvent
	for {
		var e protocol.RoverEvent
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if e == last {
			continue
		}
		last = e
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s rover=%d %s\n",
			e.Timestamp.Format("15:04:05"), e.EventType, e.RoverID, e.Message)
	}
}
