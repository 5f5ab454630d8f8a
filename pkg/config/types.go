package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent pushpipe configuration stored as
// config.toml in the .pushpipe/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Subscribe SubscribeConfig `toml:"subscribe"`
	Journal   JournalConfig   `toml:"journal"`
	Kafka     KafkaConfig     `toml:"kafka"`
}

// ServerConfig holds settings for the event broadcast server.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`

	// KeepAliveSeconds is the interval between keep-alive comment blocks
	// on open subscriptions.
	KeepAliveSeconds int `toml:"keep_alive_seconds,omitempty"`
}

// SubscribeConfig holds defaults for the listen command's subscription.
type SubscribeConfig struct {
	Host   string `toml:"host,omitempty"`
	Port   int    `toml:"port,omitempty"`
	Scheme string `toml:"scheme,omitempty"`
	Path   string `toml:"path,omitempty"`
}

// JournalConfig holds event journal settings shared by server and listener.
type JournalConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// KafkaConfig holds settings for republishing received events to Kafka.
type KafkaConfig struct {
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeys maps dotted key names to getter/setter pairs over a Config.
var configKeys = map[string]struct {
	get func(*Config) string
	set func(*Config, string) error
}{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.keep_alive_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.Server.KeepAliveSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("server.keep_alive_seconds must be a non-negative integer, got %q", v)
			}
			c.Server.KeepAliveSeconds = n
			return nil
		},
	},
	"subscribe.host": {
		get: func(c *Config) string { return c.Subscribe.Host },
		set: func(c *Config, v string) error { c.Subscribe.Host = v; return nil },
	},
	"subscribe.port": {
		get: func(c *Config) string { return strconv.Itoa(c.Subscribe.Port) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("subscribe.port must be a port number, got %q", v)
			}
			c.Subscribe.Port = n
			return nil
		},
	},
	"subscribe.scheme": {
		get: func(c *Config) string { return c.Subscribe.Scheme },
		set: func(c *Config, v string) error {
			if v != "plain" && v != "encrypted" {
				return fmt.Errorf("subscribe.scheme must be plain or encrypted, got %q", v)
			}
			c.Subscribe.Scheme = v
			return nil
		},
	},
	"subscribe.path": {
		get: func(c *Config) string { return c.Subscribe.Path },
		set: func(c *Config, v string) error { c.Subscribe.Path = v; return nil },
	},
	"journal.sqlite_path": {
		get: func(c *Config) string { return c.Journal.SQLitePath },
		set: func(c *Config, v string) error { c.Journal.SQLitePath = v; return nil },
	},
	"kafka.brokers": {
		get: func(c *Config) string { return c.Kafka.Brokers },
		set: func(c *Config, v string) error { c.Kafka.Brokers = v; return nil },
	},
	"kafka.topic": {
		get: func(c *Config) string { return c.Kafka.Topic },
		set: func(c *Config, v string) error { c.Kafka.Topic = v; return nil },
	},
}
