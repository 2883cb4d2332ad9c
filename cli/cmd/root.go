package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/warpmeet/cli/internal/config"
	"github.com/BioHazard786/warpmeet/cli/internal/ui"
	"github.com/BioHazard786/warpmeet/internal/version"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "warpmeet",
	Short:   "Peer-to-peer calls over WebRTC, signaled through a WarpMeet relay",
	Long:    `WarpMeet connects everyone who joins the same room code directly to each other using WebRTC. The relay server only introduces peers and forwards their connection handshakes; everything after that flows peer to peer.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		Server:     flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagServer, "server", "S", "", "Relay address (host[:port] or ws/wss/http/https URL)")
	pf.StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	pf.StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	pf.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	pf.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	pf.BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}
