package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nerrad567/notice-client/internal/connection"
	"github.com/nerrad567/notice-client/internal/infrastructure/config"
	"github.com/nerrad567/notice-client/internal/infrastructure/mqtt"
)

// publishConnectTimeout bounds the wait for the broker's CONNACK.
const publishConnectTimeout = 10 * time.Second

// publishOptions are the flags of "noticed publish".
type publishOptions struct {
	server   string
	topic    string
	clientID string
	token    string
	title    string
	content  string
	client   string
	qos      int
	retain   bool
}

// outboundNotification is the payload published to the broker. It decodes
// back into a notice.Notification.
type outboundNotification struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Client    string `json:"client,omitempty"`
}

var publishOpts publishOptions

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a notification directly to the broker",
	Long: `Publish one notification directly to an MQTT broker, bypassing the
notice server. Subscribers decode it like any other notification.`,
	Example: `  noticed publish --topic notice/ops --title Deploy --content "v2 is live"
  noticed publish --server ssl://broker.example.com --token secret --content ping`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := runPublish(cmd.Context(), cfg, publishOpts, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", publishOpts.topic)
		return nil
	},
}

func init() {
	defaults := connection.DefaultClientConfig()

	f := publishCmd.Flags()
	f.StringVar(&publishOpts.server, "server", defaults.Server, "Broker address ([tcp|ssl|ws|wss]://host[:port][/path])")
	f.StringVar(&publishOpts.topic, "topic", "notice/cli", "Topic to publish to")
	f.StringVar(&publishOpts.clientID, "client-id", "", "MQTT client id (generated when empty)")
	f.StringVar(&publishOpts.token, "token", "", "Auth token sent as the MQTT username")
	f.StringVar(&publishOpts.title, "title", "CLI", "Notification title")
	f.StringVar(&publishOpts.content, "content", "", "Notification content (required)")
	f.StringVar(&publishOpts.client, "client", "cli", "Sender tag")
	f.IntVar(&publishOpts.qos, "qos", 1, "QoS level (0, 1 or 2)")
	f.BoolVar(&publishOpts.retain, "retain", false, "Ask the broker to retain the message")

	rootCmd.AddCommand(publishCmd)
}

// runPublish connects, publishes one notification stamped with now, and
// disconnects.
func runPublish(ctx context.Context, cfg *config.Config, o publishOptions, now time.Time) error {
	if o.content == "" {
		return errors.New("--content is required")
	}
	if o.qos < 0 || o.qos > 2 {
		return mqtt.ErrInvalidQoS
	}
	if err := mqtt.ValidateTopicName(o.topic); err != nil {
		return fmt.Errorf("--topic: %w", err)
	}

	ep, err := mqtt.ParseEndpoint(o.server)
	if err != nil {
		return fmt.Errorf("--server: %w", err)
	}

	tlsCfg, err := mqtt.LoadTLSConfig(cfg.MQTT.TLS.CAFile, cfg.MQTT.TLS.InsecureSkipVerify)
	if err != nil {
		return fmt.Errorf("loading MQTT TLS settings: %w", err)
	}

	clientID := o.clientID
	if clientID == "" {
		clientID = "noticed-publish-" + uuid.NewString()
	}

	client, err := mqtt.NewClient(ep, mqtt.ClientOptions{
		ClientID:  clientID,
		Token:     o.token,
		TLSConfig: tlsCfg,
	})
	if err != nil {
		return err
	}
	defer client.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, publishConnectTimeout)
	defer cancel()
	if err := awaitConnAck(connectCtx, client); err != nil {
		return err
	}

	payload, err := json.Marshal(outboundNotification{
		Title:     o.title,
		Content:   o.content,
		Timestamp: now.UTC().Format(time.RFC3339),
		Client:    o.client,
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	return client.Publish(ctx, o.topic, payload, byte(o.qos), o.retain)
}

// awaitConnAck polls until the first connection is acknowledged.
func awaitConnAck(ctx context.Context, t mqtt.Transport) error {
	for {
		ev, err := t.Poll(ctx)
		if err != nil {
			return err
		}
		if ev.Kind == mqtt.EventConnAck {
			return nil
		}
	}
}
