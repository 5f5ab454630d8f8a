// Package pushpipecmder
package pushpipecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/pushpipe/pushpipe/cmd/pushpipe/config"
	listencmder "github.com/pushpipe/pushpipe/cmd/pushpipe/listen"
	sendcmder "github.com/pushpipe/pushpipe/cmd/pushpipe/send"
	servecmder "github.com/pushpipe/pushpipe/cmd/pushpipe/serve"
	versioncmder "github.com/pushpipe/pushpipe/cmd/version"
)

const pushpipeLongDesc string = `Pushpipe pushes events from a server to connected listeners over plain
chunked event streams.

Run services using:
  pushpipe serve       Run the broadcast server
  pushpipe listen      Subscribe to a server and print events
  pushpipe send        Publish an event to a server`

const pushpipeShortDesc string = "Pushpipe - push-event streaming"

func NewPushpipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pushpipe",
		Short: pushpipeShortDesc,
		Long:  pushpipeLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .pushpipe config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(listencmder.NewListenCmd())
	cmd.AddCommand(sendcmder.NewSendCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
