package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/warpmeet/cli/internal/call"
	"github.com/BioHazard786/warpmeet/cli/internal/ui"
)

var flagPingCount int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the relay is reachable and measure heartbeat round trips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pingRelay(cmd.Context(), flagPingCount)
	},
}

func pingRelay(ctx context.Context, count int) error {
	cfg, err := loadConfig()
	if err != nil {
		return call.NewError("load config", err)
	}

	sp := ui.NewConnectionSpinner(fmt.Sprintf("Connecting to %s...", cfg.WebSocketURL))
	sp.Start()
	start := time.Now()
	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		sp.Error("Could not reach the relay")
		return err
	}
	defer conn.Close()

	sp.Success(fmt.Sprintf("Connected to %s in %s", cfg.WebSocketURL, ui.FormatRTT(time.Since(start))))
	ui.PrintInfof("Assigned identity %s", conn.ClientID)

	var total time.Duration
	for i := 1; i <= count; i++ {
		hbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rtt, err := conn.Handler.Heartbeat(hbCtx)
		cancel()
		if err != nil {
			return call.WrapError("heartbeat", call.ErrTimeout, err.Error())
		}
		total += rtt
		fmt.Printf("%s heartbeat %d: %s\n", ui.IconSpeed, i, ui.FormatRTT(rtt))

		if i < count {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
	if count > 0 {
		fmt.Printf("%s average %s over %d heartbeats\n", ui.IconTime, ui.FormatRTT(total/time.Duration(count)), count)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVarP(&flagPingCount, "count", "n", 3, "Number of heartbeats to send")
}
