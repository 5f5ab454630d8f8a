package config

const (
	defaultServerListen     = ":8080"
	defaultKeepAliveSeconds = 15

	defaultSubscribeHost   = "localhost"
	defaultSubscribePort   = 8080
	defaultSubscribeScheme = "plain"
	defaultSubscribePath   = "/events"

	defaultKafkaTopic = "pushpipe.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:           defaultServerListen,
			KeepAliveSeconds: defaultKeepAliveSeconds,
		},
		Subscribe: SubscribeConfig{
			Host:   defaultSubscribeHost,
			Port:   defaultSubscribePort,
			Scheme: defaultSubscribeScheme,
			Path:   defaultSubscribePath,
		},
		Kafka: KafkaConfig{
			Topic: defaultKafkaTopic,
		},
	}
}
