package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat-app/internal/api"
	"chat-app/internal/api/endpoints"
	"chat-app/internal/api/router"
	"chat-app/internal/database"
	"chat-app/internal/env"
	internaljwt "chat-app/internal/jwt"
	"chat-app/internal/logging"
	"chat-app/internal/model"
	"chat-app/internal/queue"
	authsvc "chat-app/internal/service/auth"
	chatroomsvc "chat-app/internal/service/chatroom"
	stocksvc "chat-app/internal/service/stock"
	"chat-app/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "chat-server",
	Short:         "Chatroom backend: REST API and live channel",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API and the /ws live channel",
	RunE:  runServe,
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Create any missing DynamoDB tables and exit",
	RunE:  runTables,
}

var (
	flagAddr         string
	flagLogLevel     string
	flagCreateTables bool
	flagNoStockBot   bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAddr, "addr", "", "listen address (overrides CHAT_LISTEN_ADDR)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (overrides CHAT_LOG_LEVEL)")
	flags.BoolVar(&flagCreateTables, "create-tables", false, "create missing DynamoDB tables before serving")
	flags.BoolVar(&flagNoStockBot, "no-stock-bot", false, "treat /stock= commands as ordinary messages")

	rootCmd.AddCommand(serveCmd, tablesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("chat-server failed")
	}
}

func loadConfig() (env.Server, error) {
	cfg, err := env.LoadServer()
	if err != nil {
		return env.Server{}, err
	}
	if flagAddr != "" {
		cfg.ListenAddr = flagAddr
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagCreateTables {
		cfg.CreateTablesOnStart = true
	}
	if flagNoStockBot {
		cfg.StockBot = false
	}

	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

func openDatabase(ctx context.Context, cfg env.Server) (*database.DynamoDBClient, error) {
	return database.NewDynamoDBClient(ctx, database.Config{
		Region:       cfg.AWSRegion,
		AccessKey:    cfg.AWSID,
		SecretKey:    cfg.AWSSecret,
		SessionToken: cfg.AWSToken,
		Endpoint:     cfg.DynamoDBEndpoint,
	})
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("db init failed: %w", err)
	}

	created, err := db.EnsureTables(cmd.Context(), model.Schemas())
	if err != nil {
		return err
	}

	tables, err := db.ListTables(cmd.Context())
	if err != nil {
		return err
	}
	log.Info().Strs("created", created).Strs("tables", tables).Msg("tables ready")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db init failed: %w", err)
	}
	if cfg.CreateTablesOnStart {
		if _, err := db.EnsureTables(ctx, model.Schemas()); err != nil {
			return err
		}
	}

	issuer := internaljwt.NewIssuer(cfg.JWTSecret, cfg.JWTTTL, nil)
	authService := authsvc.New(db, issuer)
	chatroomService := chatroomsvc.New(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	wsMetrics := websocket.NewMetrics(reg)
	hub := websocket.NewHub(wsMetrics)
	go hub.Run(ctx)

	live := websocket.NewHandler(hub, newPublisher(ctx, cfg, hub), chatroomService, wsMetrics)

	queueManager := queue.NewRequestQueueManager(cfg.QueueSize, cfg.QueueWorkers)
	defer queueManager.Shutdown()

	if cfg.StockBot {
		bot := stocksvc.New(&http.Client{Timeout: cfg.StockTimeout}, cfg.StockURL)
		live.SetStockBot(bot, queueManager)
	}

	server := api.NewAPIServer(
		cfg.ListenAddr,
		queueManager,
		reg,
		router.UtilsRoutes(""),
		router.AuthRoutes("", authService),
		router.ChatroomRoutes("", chatroomService, authService, live, endpoints.ChatroomOptions{
			HistoryLimit:    cfg.HistoryLimit,
			AllowQueryToken: cfg.AllowQueryToken,
		}),
	)
	server.SetCORSOrigins(cfg.CORSOrigins)

	return server.Run(ctx)
}

// newPublisher uses Redis when configured and reachable, otherwise frames
// only reach clients of this instance.
func newPublisher(ctx context.Context, cfg env.Server, hub *websocket.Hub) websocket.Publisher {
	if cfg.RedisURL == "" {
		log.Info().Msg("redis not configured, live fan-out is local to this instance")
		return websocket.NewLocalPublisher(hub)
	}

	client := websocket.NewRedisClient(cfg.RedisURL, cfg.RedisPass)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisURL).Msg("redis unreachable, falling back to local fan-out")
		_ = client.Close()
		return websocket.NewLocalPublisher(hub)
	}

	publisher := websocket.NewRedisPublisher(client, hub)
	go func() {
		defer client.Close()
		if err := publisher.Subscribe(ctx); err != nil {
			log.Error().Err(err).Msg("redis subscription stopped")
		}
	}()
	return publisher
}
