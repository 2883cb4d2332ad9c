package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/warpmeet/cli/internal/call"
	"github.com/BioHazard786/warpmeet/cli/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the relay's open rooms and connection count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStats(cmd.Context())
	},
}

// relayStats mirrors the JSON served at /stats.
type relayStats struct {
	Connections int `json:"connections"`
	Rooms       []struct {
		Room      string    `json:"room"`
		Members   int       `json:"members"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"rooms"`
}

func fetchStats(ctx context.Context, url string) (*relayStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var stats relayStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &stats, nil
}

func showStats(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return call.NewError("load config", err)
	}

	stopSpinner := ui.RunSpinner("Fetching relay stats...")
	stats, err := fetchStats(ctx, cfg.HTTPURL("/stats"))
	stopSpinner()
	if err != nil {
		return call.NewError("fetch stats", err)
	}

	rooms := make([]ui.RoomStat, len(stats.Rooms))
	for i, r := range stats.Rooms {
		rooms[i] = ui.RoomStat{Code: r.Room, Members: r.Members, CreatedAt: r.CreatedAt}
	}
	fmt.Println(ui.StatsTitle(cfg.Server))
	fmt.Println(ui.StatsView(stats.Connections, rooms, time.Now()))
	return nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
