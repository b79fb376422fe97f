package env

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	JWTSecret        = "CHAT_JWT_SECRET"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
)

// Server holds the backend configuration.
type Server struct {
	ListenAddr          string        `env:"CHAT_LISTEN_ADDR"          envDefault:":8080"`
	JWTSecret           string        `env:"CHAT_JWT_SECRET"`
	JWTTTL              time.Duration `env:"CHAT_JWT_TTL"              envDefault:"1h"`
	AWSRegion           string        `env:"AWS_REGION"                envDefault:"us-east-1"`
	AWSID               string        `env:"AWS_ID"`
	AWSSecret           string        `env:"AWS_SECRET"`
	AWSToken            string        `env:"AWS_TOKEN"`
	DynamoDBEndpoint    string        `env:"DYNAMODB_ENDPOINT"`
	RedisURL            string        `env:"CHAT_REDIS_URL"`
	RedisPass           string        `env:"CHAT_REDIS_PASS"`
	AllowQueryToken     bool          `env:"CHAT_WS_ALLOW_QUERY_TOKEN" envDefault:"false"`
	CORSOrigins         []string      `env:"CHAT_CORS_ORIGINS"         envSeparator:"," envDefault:"http://localhost:8080"`
	QueueSize           int           `env:"CHAT_QUEUE_SIZE"           envDefault:"10"`
	QueueWorkers        int           `env:"CHAT_QUEUE_WORKERS"        envDefault:"10"`
	HistoryLimit        int           `env:"CHAT_HISTORY_LIMIT"        envDefault:"50"`
	CreateTablesOnStart bool          `env:"CHAT_DYNAMODB_CREATE_TABLES" envDefault:"false"`
	StockBot            bool          `env:"CHAT_STOCK_BOT"            envDefault:"true"`
	StockURL            string        `env:"CHAT_STOCK_URL"            envDefault:"https://stooq.com/q/l/"`
	StockTimeout        time.Duration `env:"CHAT_STOCK_TIMEOUT"        envDefault:"5s"`
	LogLevel            string        `env:"CHAT_LOG_LEVEL"            envDefault:"info"`
	LogPretty           bool          `env:"CHAT_LOG_PRETTY"           envDefault:"false"`
}

// Client holds the chat client configuration.
type Client struct {
	APIURL           string        `env:"CHAT_API_URL"              envDefault:"http://localhost:8080"`
	WSURL            string        `env:"CHAT_WS_URL"`
	HTTPTimeout      time.Duration `env:"CHAT_HTTP_TIMEOUT"         envDefault:"10s"`
	HandshakeTimeout time.Duration `env:"CHAT_WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	QueryToken       bool          `env:"CHAT_WS_QUERY_TOKEN"       envDefault:"false"`
	LogLevel         string        `env:"CHAT_LOG_LEVEL"            envDefault:"warn"`
	LogPretty        bool          `env:"CHAT_LOG_PRETTY"           envDefault:"true"`
	MetricsAddr      string        `env:"CHAT_METRICS_ADDR"`
}

func LoadServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func LoadClient() (Client, error) {
	var cfg Client
	if err := env.Parse(&cfg); err != nil {
		return Client{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports missing settings the server cannot start without.
func (s Server) Validate() error {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return fmt.Errorf("env: required environment variable not set: %s", JWTSecret)
	}
	if s.HistoryLimit <= 0 {
		return fmt.Errorf("env: CHAT_HISTORY_LIMIT must be positive")
	}
	return nil
}

// LiveURL returns the WebSocket base URL, derived from the API URL when
// CHAT_WS_URL is unset.
func (c Client) LiveURL() (string, error) {
	if c.WSURL != "" {
		return c.WSURL, nil
	}

	u, err := url.Parse(c.APIURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""

	return u.String(), nil
}
