package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chat-app/internal/client"
	"chat-app/internal/env"
	"chat-app/internal/live"
	"chat-app/internal/logging"
	"chat-app/internal/session"
	"chat-app/internal/terminal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "chat",
	Short:         "Terminal chatroom client",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInteractive,
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Log in and list chatrooms",
	Args:  cobra.NoArgs,
	RunE:  runRooms,
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Log in and create a chatroom",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var historyCmd = &cobra.Command{
	Use:   "history <chatroom-id>",
	Short: "Log in and print the recent messages of a chatroom",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var (
	flagAPIURL      string
	flagWSURL       string
	flagLogLevel    string
	flagQueryToken  bool
	flagMetricsAddr string
	flagUsername    string
	flagPassword    string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAPIURL, "api-url", "", "REST base URL (overrides CHAT_API_URL)")
	flags.StringVar(&flagWSURL, "ws-url", "", "live channel URL (overrides CHAT_WS_URL)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (overrides CHAT_LOG_LEVEL)")
	flags.BoolVar(&flagQueryToken, "query-token", false, "also send the token as ?token= on the live handshake")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve client metrics on this address (overrides CHAT_METRICS_ADDR)")
	flags.StringVarP(&flagUsername, "username", "u", "", "username for one-shot commands")
	flags.StringVarP(&flagPassword, "password", "p", os.Getenv("CHAT_PASSWORD"), "password for one-shot commands (default $CHAT_PASSWORD)")

	rootCmd.AddCommand(registerCmd, roomsCmd, createCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	session *session.Session
	surface *terminal.Surface
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := env.LoadClient()
	if err != nil {
		return nil, err
	}
	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
	}
	if flagWSURL != "" {
		cfg.WSURL = flagWSURL
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagQueryToken {
		cfg.QueryToken = true
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}

	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	var metrics *client.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = client.NewMetrics(reg)
		serveMetrics(ctx, cfg.MetricsAddr, reg)
	}

	api, err := client.New(client.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.HTTPTimeout,
		Metrics: metrics,
	})
	if err != nil {
		return nil, err
	}

	liveURL, err := cfg.LiveURL()
	if err != nil {
		return nil, err
	}

	surface := terminal.NewSurface(os.Stdout, time.Local)
	sess := session.New(api, surface, live.Config{
		URL:              liveURL,
		HandshakeTimeout: cfg.HandshakeTimeout,
		QueryToken:       cfg.QueryToken,
		Metrics:          metrics,
	})

	return &app{session: sess, surface: surface}, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.session.Close()

	return terminal.NewREPL(a.session, a.surface, os.Stdin).Run(ctx)
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.session.Close()

	return a.session.Register(cmd.Context(), args[0], flagPassword)
}

// login signs in with --username/--password; the session lists the
// chatrooms as part of a successful login.
func (a *app) login(ctx context.Context) error {
	if flagUsername == "" {
		return errors.New("--username is required")
	}
	return a.session.Login(ctx, flagUsername, flagPassword)
}

func runRooms(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.session.Close()

	return a.login(cmd.Context())
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := a.login(cmd.Context()); err != nil {
		return err
	}
	return a.session.CreateRoom(cmd.Context(), args[0])
}

func runHistory(cmd *cobra.Command, args []string) error {
	roomID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || roomID <= 0 {
		return fmt.Errorf("invalid chatroom id %q", args[0])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := a.login(cmd.Context()); err != nil {
		return err
	}

	room, ok := a.session.LookupRoom(args[0])
	if !ok {
		room.ID = roomID
	}
	a.surface.ShowRoom(room)

	messages, err := a.session.FetchHistory(cmd.Context(), roomID)
	if err != nil {
		return err
	}
	a.surface.AppendMessages(messages...)
	return nil
}
