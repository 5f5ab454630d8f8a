// Package servecmder provides the serve command for running the broadcast server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pushpipe/pushpipe/pkg/config"
	"github.com/pushpipe/pushpipe/pkg/journal"
	"github.com/pushpipe/pushpipe/pkg/journal/inmemory"
	"github.com/pushpipe/pushpipe/pkg/journal/sqlite"
	"github.com/pushpipe/pushpipe/pkg/logger"
	"github.com/pushpipe/pushpipe/server"
)

type ServeCommander struct {
	listen           string
	keepAliveSeconds int
	sqlitePath       string
	debug            bool

	viper  *viper.Viper
	logger *zap.Logger
}

const serveLongDesc string = `Run the broadcast server.

Publishers POST events to /publish; each event is journaled, assigned an
ID, and pushed to every listener holding open a GET /events subscription.
Listeners reconnecting with a Last-Event-ID header receive the events
they missed from the journal before live delivery resumes.`

const serveShortDesc string = "Run the pushpipe broadcast server"

var serveFlags = config.FlagSet{
	config.FlagServerListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the server to listen on",
	},
	config.FlagKeepAlive: {
		Name:        "keep-alive",
		ViperKey:    "server.keep_alive_seconds",
		Description: "Seconds between keep-alive comments on idle subscriptions (0 disables)",
	},
	config.FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "journal.sqlite_path",
		Description: "Path to the SQLite journal (default: in-memory)",
	},
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, []string{
				config.FlagServerListen,
				config.FlagKeepAlive,
				config.FlagSQLite,
			})

			cmder.viper = v
			cmder.listen = v.GetString("server.listen")
			cmder.keepAliveSeconds = v.GetInt("server.keep_alive_seconds")
			cmder.sqlitePath = v.GetString("journal.sqlite_path")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagServerListen, &cmder.listen)
	config.AddIntFlag(cmd, serveFlags, config.FlagKeepAlive, &cmder.keepAliveSeconds)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	store, err := c.newJournalStore()
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Config{
		ListenAddr: c.listen,
		KeepAlive:  time.Duration(c.keepAliveSeconds) * time.Second,
	}, store, c.logger)
	defer srv.Close()

	// Log config file edits while running. Listen address changes still
	// need a restart.
	if c.viper != nil {
		c.viper.OnConfigChange(func(e fsnotify.Event) {
			c.logger.Info("config file changed, restart to apply",
				zap.String("file", e.Name),
				zap.String("op", e.Op.String()),
			)
		})
		c.viper.WatchConfig()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}

func (c *ServeCommander) newJournalStore() (journal.Store, error) {
	if c.sqlitePath != "" {
		store, err := sqlite.NewStore(c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite journal: %w", err)
		}
		c.logger.Info("using SQLite journal", zap.String("path", c.sqlitePath))
		return store, nil
	}

	c.logger.Info("using in-memory journal")
	return inmemory.NewStore(), nil
}
