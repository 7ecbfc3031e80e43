package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/notice-client/internal/connection"
	"github.com/nerrad567/notice-client/internal/notice"
	"github.com/nerrad567/notice-client/internal/store"
)

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ConfigStore persists the client record. *store.ConfigStore satisfies it.
type ConfigStore interface {
	Load() connection.ClientConfig
	Save(cfg connection.ClientConfig) error
}

// Manager is the part of *connection.Manager the service drives.
type Manager interface {
	UpdateConfig(cfg connection.ClientConfig)
	Connect(ctx context.Context) error
	Disconnect()
	State() connection.State
}

// Service implements the daemon's commands.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Service struct {
	configs ConfigStore
	history store.History
	manager Manager
	logger  Logger

	// pending tracks asynchronous config applications.
	pending sync.WaitGroup
}

// New creates a Service. logger may be nil.
func New(configs ConfigStore, history store.History, manager Manager, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		configs: configs,
		history: history,
		manager: manager,
		logger:  logger,
	}
}

// GetConfig returns the persisted client record, or the default record when
// none has been saved.
func (s *Service) GetConfig() connection.ClientConfig {
	return s.configs.Load()
}

// SaveConfig persists cfg and then hands it to the connection manager in the
// background. The live connection is not touched; the new record applies
// on the next Connect.
func (s *Service) SaveConfig(cfg connection.ClientConfig) error {
	if err := s.configs.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.manager.UpdateConfig(cfg)
	}()

	s.logger.Info("client config saved", "server", cfg.Server, "topic", cfg.Topic)
	return nil
}

// Connect applies the persisted client record and starts connecting.
// It returns once the connection attempt is scheduled; only a malformed
// server address is reported as an error.
func (s *Service) Connect(ctx context.Context) error {
	cfg := s.configs.Load()
	s.manager.UpdateConfig(cfg)

	if err := s.manager.Connect(ctx); err != nil {
		s.logger.Warn("connect rejected", "server", cfg.Server, "error", err)
		return err
	}
	return nil
}

// Disconnect stops the connection. Safe to call when already disconnected.
func (s *Service) Disconnect() {
	s.manager.Disconnect()
}

// ConnectionState returns "disconnected", "connecting" or "connected".
func (s *Service) ConnectionState() string {
	return s.manager.State().String()
}

// Messages returns the stored history, newest first.
func (s *Service) Messages(ctx context.Context) []notice.StoredMessage {
	return s.history.Load(ctx)
}

// SaveMessages replaces the stored history. Entries past the history cap
// are dropped.
func (s *Service) SaveMessages(ctx context.Context, msgs []notice.StoredMessage) error {
	if err := s.history.Save(ctx, msgs); err != nil {
		return fmt.Errorf("saving messages: %w", err)
	}
	return nil
}

// Wait blocks until pending config applications have reached the manager.
func (s *Service) Wait() {
	s.pending.Wait()
}
