package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// sendTimeout bounds one webhook request.
const sendTimeout = 15 * time.Second

// sendOptions are the flags of "noticed send".
type sendOptions struct {
	server  string
	token   string
	topic   string
	title   string
	content string
	client  string
}

// webhookRequest is the body accepted by the notice server's webhook.
type webhookRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Client  string `json:"client"`
	Topic   string `json:"topic,omitempty"`
}

var sendOpts sendOptions

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a notification through the server webhook",
	Long: `Send a notification through the notice server's webhook endpoint
(POST <server>/webhook). Without --topic the server picks its default topic.`,
	Example: `  noticed send --token secret --content "backup finished"
  noticed send --server https://notice.example.com --token secret --topic notice/ops --title Deploy --content done`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSend(cmd.Context(), http.DefaultClient, sendOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.server, "server", "http://localhost:9090", "Notice server base URL")
	f.StringVar(&sendOpts.token, "token", "", "Bearer token (required)")
	f.StringVar(&sendOpts.topic, "topic", "", "Topic to publish to (server default when empty)")
	f.StringVar(&sendOpts.title, "title", "CLI", "Notification title")
	f.StringVar(&sendOpts.content, "content", "", "Notification content (required)")
	f.StringVar(&sendOpts.client, "client", "cli", "Sender tag")

	rootCmd.AddCommand(sendCmd)
}

// runSend posts one notification to the webhook and prints the response.
func runSend(ctx context.Context, client *http.Client, o sendOptions, out io.Writer) error {
	if o.token == "" {
		return errors.New("--token is required")
	}
	if o.content == "" {
		return errors.New("--content is required")
	}

	body, err := json.Marshal(webhookRequest{
		Title:   o.title,
		Content: o.content,
		Client:  o.client,
		Topic:   o.topic,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	url := strings.TrimSuffix(o.server, "/") + "/webhook"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	fmt.Fprintf(out, "sent: %s\n", strings.TrimSpace(string(respBody)))
	return nil
}
