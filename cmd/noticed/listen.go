package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/notice-client/internal/connection"
	"github.com/nerrad567/notice-client/internal/infrastructure/config"
	"github.com/nerrad567/notice-client/internal/infrastructure/logging"
	"github.com/nerrad567/notice-client/internal/infrastructure/mqtt"
	"github.com/nerrad567/notice-client/internal/notice"
	"github.com/nerrad567/notice-client/internal/notify"
)

// listenOptions are the flags of "noticed listen".
type listenOptions struct {
	server   string
	topic    string
	clientID string
	token    string
	exec     string
	desktop  bool
	jsonOut  bool
}

var listenOpts listenOptions

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Subscribe and print notifications to stdout",
	Long: `Subscribe to a topic filter and print every notification to stdout.

The connection is retried until interrupted. With --exec, the command runs once
per message with NOTICE_TOPIC, NOTICE_TITLE, NOTICE_CONTENT, NOTICE_TIMESTAMP,
NOTICE_RAW, NOTICE_CLIENT and NOTICE_EXTRA set and the raw payload on stdin.`,
	Example: `  noticed listen --server tcp://broker.local:1883 --topic 'alerts/#'
  noticed listen --token secret --exec 'notify-send "$NOTICE_TITLE" "$NOTICE_CONTENT"'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		log := logging.New(cfg.Logging, version)
		return runListen(cmd.Context(), cfg, listenOpts, cmd.OutOrStdout(), log)
	},
}

func init() {
	defaults := connection.DefaultClientConfig()

	f := listenCmd.Flags()
	f.StringVar(&listenOpts.server, "server", defaults.Server, "Broker address ([tcp|ssl|ws|wss]://host[:port][/path])")
	f.StringVar(&listenOpts.topic, "topic", defaults.Topic, "Topic filter to subscribe to")
	f.StringVar(&listenOpts.clientID, "client-id", "", "MQTT client id (generated when empty)")
	f.StringVar(&listenOpts.token, "token", "", "Auth token sent as the MQTT username")
	f.StringVar(&listenOpts.exec, "exec", "", "Command to run for every message")
	f.BoolVar(&listenOpts.desktop, "desktop", false, "Also show desktop notifications")
	f.BoolVar(&listenOpts.jsonOut, "json", false, "Print each message as a JSON line")

	rootCmd.AddCommand(listenCmd)
}

// runListen connects with the given client record and prints messages to out
// until ctx is cancelled.
func runListen(ctx context.Context, cfg *config.Config, o listenOptions, out io.Writer, log *logging.Logger) error {
	if _, err := mqtt.ParseEndpoint(o.server); err != nil {
		return fmt.Errorf("--server: %w", err)
	}
	if o.token == "" {
		log.Warn("no auth token set; brokers that require one will reject the connection")
	}

	opts := []notice.DispatcherOption{
		notice.WithDefaultTitle(cfg.Notifications.DefaultTitle),
		notice.WithLogger(log.With("component", "dispatcher")),
		notice.WithObservers(&messagePrinter{out: out, json: o.jsonOut, defaultTitle: cfg.Notifications.DefaultTitle}),
	}

	if o.desktop {
		opts = append(opts, notice.WithNotifier(notify.NewDesktop("")))
	}

	if o.exec != "" {
		hook, err := notify.NewCommand(o.exec, cfg.GetExecTimeout(), log.With("component", "exec"))
		if err != nil {
			return fmt.Errorf("--exec: %w", err)
		}
		defer hook.Wait()
		opts = append(opts, notice.WithObservers(hook))
	}

	tlsCfg, err := mqtt.LoadTLSConfig(cfg.MQTT.TLS.CAFile, cfg.MQTT.TLS.InsecureSkipVerify)
	if err != nil {
		return fmt.Errorf("loading MQTT TLS settings: %w", err)
	}

	states := notice.EmitterFunc(func(event string, payload any) {
		if event == notice.EventConnectionState {
			log.Info("connection state changed", "state", payload)
		}
	})

	manager := connection.New(connection.ClientConfig{
		Server:   o.server,
		ClientID: o.clientID,
		Topic:    o.topic,
		Token:    o.token,
	},
		connection.WithEmitter(states),
		connection.WithDispatcher(notice.NewDispatcher(nil, opts...)),
		connection.WithTLSConfig(tlsCfg),
		connection.WithLogger(log.With("component", "connection")),
	)
	defer manager.Disconnect()

	if err := manager.Connect(ctx); err != nil {
		return err
	}
	log.Info("listening", "server", o.server, "topic", o.topic)

	<-ctx.Done()
	return nil
}

// messagePrinter writes received notifications to a terminal or pipe.
type messagePrinter struct {
	mu           sync.Mutex
	out          io.Writer
	json         bool
	defaultTitle string
}

// Observe implements notice.Observer.
func (p *messagePrinter) Observe(ev notice.TopicEvent, _ []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		line, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(p.out, "%s\n", line)
		return
	}

	fmt.Fprintf(p.out, "%s [%s] %s: %s\n",
		ev.Message.Timestamp.UTC().Format(time.RFC3339),
		ev.Topic,
		ev.Message.DisplayTitle(p.defaultTitle),
		ev.Message.Content,
	)
}
