package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/wououoo/weddingalba-chat/pkg/config"
	"github.com/wououoo/weddingalba-chat/pkg/database"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

type Config struct {
	Server    ServerConfig
	Database  database.Config
	Kafka     KafkaConfig
	Redis     RedisConfig
	WebSocket WebSocketConfig
	Chat      ChatConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type KafkaConfig struct {
	Brokers             string
	Topic               string
	Partitions          int
	GroupID             string `mapstructure:"group_id"`
	AutoOffsetReset     string `mapstructure:"auto_offset_reset"`
	Workers             int
	MaxRetries          int `mapstructure:"max_retries"`
	RequestTimeoutMs    int `mapstructure:"request_timeout_ms"`
	DeliveryTimeoutMs   int `mapstructure:"delivery_timeout_ms"`
	MaxPollIntervalMs   int `mapstructure:"max_poll_interval_ms"`
	SessionTimeoutMs    int `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMs int `mapstructure:"heartbeat_interval_ms"`
	FetchMinBytes       int `mapstructure:"fetch_min_bytes"`
	FetchMaxWaitMs      int `mapstructure:"fetch_max_wait_ms"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type ChatConfig struct {
	TypingTTL      time.Duration `mapstructure:"typing_ttl"`
	PresenceTTL    time.Duration `mapstructure:"presence_ttl"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	FastInitLimit  int           `mapstructure:"fast_init_limit"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	InstanceID     string        `mapstructure:"instance_id"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chat")
	v.SetDefault("database.password", "chat")
	v.SetDefault("database.dbname", "weddingalba")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "chat-messages")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("kafka.group_id", "chat-consumer")
	v.SetDefault("kafka.auto_offset_reset", "earliest")
	v.SetDefault("kafka.workers", 3)
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.request_timeout_ms", 30000)
	v.SetDefault("kafka.delivery_timeout_ms", 120000)
	v.SetDefault("kafka.max_poll_interval_ms", 300000)
	v.SetDefault("kafka.session_timeout_ms", 45000)
	v.SetDefault("kafka.heartbeat_interval_ms", 3000)
	v.SetDefault("kafka.fetch_min_bytes", 1)
	v.SetDefault("kafka.fetch_max_wait_ms", 500)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("chat.typing_ttl", "10s")
	v.SetDefault("chat.presence_ttl", "5m")
	v.SetDefault("chat.session_ttl", "1h")
	v.SetDefault("chat.fast_init_limit", 20)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.instance_id", "")
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("chat.instance_id", "INSTANCE_ID")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Chat.TypingTTL = parseDuration(v, "chat.typing_ttl", 10*time.Second)
	cfg.Chat.PresenceTTL = parseDuration(v, "chat.presence_ttl", 5*time.Minute)
	cfg.Chat.SessionTTL = parseDuration(v, "chat.session_ttl", time.Hour)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
