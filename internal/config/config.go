package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/weiawesome/wes-io-live/turn-service/pkg/config"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	WebSocket WebSocketConfig
	Turn      TurnConfig
	Notice    NoticeConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type TurnConfig struct {
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	EmptyRoomTTL      time.Duration `mapstructure:"empty_room_ttl"`
	MaxBufferBytes    int           `mapstructure:"max_buffer_bytes"`
}

type NoticeConfig struct {
	Locale string
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type RedisConfig struct {
	Enabled           bool
	Address           string
	Password          string
	DB                int
	DirectoryPrefix   string        `mapstructure:"directory_prefix"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
	AdvertiseAddress  string        `mapstructure:"advertise_address"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

var (
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidSize     = errors.New("size must be positive")
)

func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom reads config.yaml from dir, applies defaults and environment
// overrides, and validates the result.
func LoadFrom(dir string) (*Config, error) {
	v, err := pkgconfig.Load(dir, "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":             "PORT",
		"grpc.port":               "GRPC_PORT",
		"log.level":               "LOG_LEVEL",
		"kafka.brokers":           "KAFKA_BROKERS",
		"kafka.topic":             "KAFKA_TURN_TOPIC",
		"redis.address":           "REDIS_ADDRESS",
		"redis.password":          "REDIS_PASSWORD",
		"turn.inactivity_timeout": "TURN_INACTIVITY_TIMEOUT",
		"notice.locale":           "NOTICE_LOCALE",
	}); err != nil {
		return nil, err
	}

	// Durations are parsed first so a malformed value reports
	// ErrInvalidDuration instead of a generic decode failure.
	var cfg Config
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"server.shutdown_timeout", &cfg.Server.ShutdownTimeout},
		{"websocket.ping_interval", &cfg.WebSocket.PingInterval},
		{"websocket.pong_wait", &cfg.WebSocket.PongWait},
		{"websocket.write_wait", &cfg.WebSocket.WriteWait},
		{"turn.inactivity_timeout", &cfg.Turn.InactivityTimeout},
		{"turn.sweep_interval", &cfg.Turn.SweepInterval},
		{"turn.empty_room_ttl", &cfg.Turn.EmptyRoomTTL},
		{"redis.heartbeat_interval", &cfg.Redis.HeartbeatInterval},
		{"redis.key_ttl", &cfg.Redis.KeyTTL},
	}
	parsed := make([]time.Duration, len(durations))
	for i, d := range durations {
		if parsed[i], err = parseDuration(v, d.key); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	for i, d := range durations {
		*d.dst = parsed[i]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("grpc.port", 50070)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("turn.inactivity_timeout", "60s")
	v.SetDefault("turn.sweep_interval", "1s")
	v.SetDefault("turn.empty_room_ttl", "5m")
	v.SetDefault("turn.max_buffer_bytes", 4096)
	v.SetDefault("notice.locale", "es")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "turn-events")
	v.SetDefault("kafka.partitions", 4)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.directory_prefix", "turn:rooms:")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("redis.advertise_address", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	for name, port := range map[string]int{"server.port": c.Server.Port, "grpc.port": c.GRPC.Port} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s=%d: %w", name, port, ErrInvalidPort)
		}
	}
	for name, d := range map[string]time.Duration{
		"turn.inactivity_timeout": c.Turn.InactivityTimeout,
		"turn.sweep_interval":     c.Turn.SweepInterval,
		"turn.empty_room_ttl":     c.Turn.EmptyRoomTTL,
		"websocket.pong_wait":     c.WebSocket.PongWait,
		"websocket.ping_interval": c.WebSocket.PingInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %w", name, ErrInvalidDuration)
		}
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket.ping_interval must be shorter than pong_wait: %w", ErrInvalidDuration)
	}
	for name, n := range map[string]int64{
		"turn.max_buffer_bytes":      int64(c.Turn.MaxBufferBytes),
		"websocket.send_buffer":      int64(c.WebSocket.SendBuffer),
		"websocket.max_message_size": c.WebSocket.MaxMessageSize,
	} {
		if n <= 0 {
			return fmt.Errorf("%s: %w", name, ErrInvalidSize)
		}
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, str)
	}
	return d, nil
}
