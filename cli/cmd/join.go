package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/warpmeet/cli/internal/call"
	"github.com/BioHazard786/warpmeet/cli/internal/roomcode"
	"github.com/BioHazard786/warpmeet/cli/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join [room]",
	Aliases: []string{"j"},
	Short:   "Join a room and connect to everyone in it",
	Long: `Join a room on the relay and open a direct WebRTC connection to every
other member. Without a room code a new memorable one is generated.

Examples:
  warpmeet join
  warpmeet join amber-harbor-cello-otter
  warpmeet join --server meet.example.com standup`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := ""
		if len(args) == 1 {
			room = args[0]
		}
		return joinRoom(cmd.Context(), room)
	},
}

func joinRoom(ctx context.Context, room string) error {
	if room == "" {
		room = roomcode.Generate(roomcode.DefaultWords)
	}

	cfg, err := loadConfig()
	if err != nil {
		return call.NewError("load config", err)
	}

	if cfg.GetTURNServers() == nil && call.ShouldForceRelay() {
		ui.PrintWarning("VPN or tunnel interface detected, direct connections may fail without a TURN server (--turn)")
	}

	sp := ui.NewConnectionSpinner("Connecting to server...")
	sp.Start()
	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		sp.Error("Could not reach the relay")
		return err
	}
	defer conn.Close()

	sp.UpdateMessage(fmt.Sprintf("Joining room %s...", room))
	joined, err := conn.Handler.Join(ctx, room)
	if err != nil {
		sp.Error("Could not join the room")
		return call.WrapError("join room", call.ErrSignalingError, err.Error())
	}
	sp.Stop()
	defer func() { _ = conn.Handler.Leave(joined.Room) }()

	ui.RenderRoomInfo(joined.Room, conn.ClientID)
	fmt.Println()

	mesh := call.NewMesh(cfg, conn.Client, call.MeshOptions{})
	defer mesh.Close()

	view := ui.NewRoomView(joined.Room, conn.ClientID, func() ui.RoomSnapshot {
		return roomSnapshot(mesh)
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	meshErr := make(chan error, 1)
	go func() {
		err := mesh.Run(runCtx, conn.Handler, joined.Peers)
		meshErr <- err
		view.Stop()
	}()
	go func() {
		<-runCtx.Done()
		view.Stop()
	}()

	if err := view.Run(); err != nil {
		return call.NewError("room view", err)
	}
	cancel()
	return <-meshErr
}

func roomSnapshot(mesh *call.Mesh) ui.RoomSnapshot {
	peers := mesh.Peers()
	rows := make([]ui.PeerRow, len(peers))
	for i, p := range peers {
		rows[i] = ui.PeerRow{ID: p.ID, Device: p.Device, State: p.State, RTT: p.RTT}
	}
	return ui.RoomSnapshot{RelayRTT: mesh.RelayRTT(), Peers: rows}
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
