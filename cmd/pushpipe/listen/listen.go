// Package listencmder provides the listen command for subscribing to a
// broadcast server and printing received events.
package listencmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pushpipe/pushpipe/client"
	"github.com/pushpipe/pushpipe/pkg/config"
	"github.com/pushpipe/pushpipe/pkg/eventstream"
	eskafka "github.com/pushpipe/pushpipe/pkg/eventstream/kafka"
	"github.com/pushpipe/pushpipe/pkg/eventstream/nop"
	"github.com/pushpipe/pushpipe/pkg/journal"
	"github.com/pushpipe/pushpipe/pkg/journal/sqlite"
	"github.com/pushpipe/pushpipe/pkg/logger"
	"github.com/pushpipe/pushpipe/pkg/transport"
)

type ListenCommander struct {
	host         string
	port         int
	scheme       string
	path         string
	sqlitePath   string
	kafkaBrokers string
	kafkaTopic   string
	debug        bool

	logger *zap.Logger
}

const listenLongDesc string = `Subscribe to a broadcast server and print events as they arrive.

The listener reconnects automatically with exponential backoff and resumes
from the last received event ID, so events published while disconnected are
replayed from the server's journal.

Optionally journal received events to SQLite and republish them to Kafka.`

const listenShortDesc string = "Subscribe to a pushpipe server"

func NewListenCmd() *cobra.Command {
	cmder := &ListenCommander{}

	cmd := &cobra.Command{
		Use:   "listen",
		Short: listenShortDesc,
		Long:  listenLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("host") {
				cmder.host = cfg.Subscribe.Host
			}
			if !cmd.Flags().Changed("port") {
				cmder.port = cfg.Subscribe.Port
			}
			if !cmd.Flags().Changed("scheme") {
				cmder.scheme = cfg.Subscribe.Scheme
			}
			if !cmd.Flags().Changed("path") {
				cmder.path = cfg.Subscribe.Path
			}
			if !cmd.Flags().Changed("sqlite") {
				cmder.sqlitePath = cfg.Journal.SQLitePath
			}
			if !cmd.Flags().Changed("kafka-brokers") {
				cmder.kafkaBrokers = cfg.Kafka.Brokers
			}
			if !cmd.Flags().Changed("kafka-topic") {
				cmder.kafkaTopic = cfg.Kafka.Topic
			}

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

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.host, "host", "H", defaults.Subscribe.Host, "Server host to subscribe to")
	cmd.Flags().IntVarP(&cmder.port, "port", "p", defaults.Subscribe.Port, "Server port")
	cmd.Flags().StringVar(&cmder.scheme, "scheme", defaults.Subscribe.Scheme, "Transport scheme (plain, encrypted)")
	cmd.Flags().StringVar(&cmder.path, "path", defaults.Subscribe.Path, "Subscription path on the server")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Journal received events to this SQLite database")
	cmd.Flags().StringVar(&cmder.kafkaBrokers, "kafka-brokers", "", "Comma-separated Kafka brokers to republish events to")
	cmd.Flags().StringVar(&cmder.kafkaTopic, "kafka-topic", defaults.Kafka.Topic, "Kafka topic for republished events")

	return cmd
}

func (c *ListenCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	scheme, err := parseScheme(c.scheme)
	if err != nil {
		return err
	}

	store, err := c.newJournalStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	publisher := c.newPublisher()
	defer publisher.Close()

	events := charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		ReportTimestamp: true,
	})

	handler := newSubscriptionHandler(subscriptionConfig{
		target: client.Target{
			Host:   c.host,
			Port:   c.port,
			Scheme: scheme,
		},
		path:      c.path,
		store:     store,
		publisher: publisher,
		source: eventstream.EventSource{
			Host:   c.host,
			Port:   c.port,
			Scheme: c.scheme,
			Path:   c.path,
		},
		events: events,
		logger: c.logger,
	})

	session := client.NewSession(handler, client.Config{Logger: c.logger})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.logger.Info("subscribing",
		zap.String("host", c.host),
		zap.Int("port", c.port),
		zap.String("scheme", c.scheme),
		zap.String("path", c.path),
	)

	err = session.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (c *ListenCommander) newJournalStore() (journal.Store, error) {
	if c.sqlitePath == "" {
		return nil, nil
	}

	store, err := sqlite.NewStore(c.sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite journal: %w", err)
	}

	c.logger.Info("journaling received events", zap.String("path", c.sqlitePath))

	return store, nil
}

func (c *ListenCommander) newPublisher() eventstream.Publisher {
	if c.kafkaBrokers == "" {
		return nop.NewPublisher()
	}

	brokers := strings.Split(c.kafkaBrokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	c.logger.Info("republishing events to kafka",
		zap.Strings("brokers", brokers),
		zap.String("topic", c.kafkaTopic),
	)

	return eskafka.NewPublisher(brokers, c.kafkaTopic)
}

func parseScheme(s string) (transport.Scheme, error) {
	switch s {
	case "plain":
		return transport.SchemePlain, nil
	case "encrypted":
		return transport.SchemeEncrypted, nil
	default:
		return "", fmt.Errorf("unknown scheme %q (available: plain, encrypted)", s)
	}
}
