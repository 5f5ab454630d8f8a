// Package configcmder provides the config command for managing persistent
// pushpipe configuration stored in the .pushpipe/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent pushpipe configuration.

Configuration is stored as config.toml in the .pushpipe/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.keep_alive_seconds,
  subscribe.host, subscribe.port, subscribe.scheme, subscribe.path,
  journal.sqlite_path,
  kafka.brokers, kafka.topic

Use subcommands to get, set, or list configuration values:
  pushpipe config set <key> <value>    Set a configuration value
  pushpipe config get <key>            Get a configuration value
  pushpipe config list                 List all configuration values

Examples:
  pushpipe config set subscribe.host stream.example.com
  pushpipe config set subscribe.scheme encrypted
  pushpipe config get server.listen
  pushpipe config list`

const configShortDesc string = "Manage persistent pushpipe configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
