// Package bridge assembles one running bridge session: the scripting host,
// the mediation SDK, the plugin library, the delivery bus and the optional
// journal.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"adsbridge/pkg/bus"
	"adsbridge/pkg/config"
	"adsbridge/pkg/dispatch"
	"adsbridge/pkg/host"
	"adsbridge/pkg/journal"
	"adsbridge/pkg/mediation"
	"adsbridge/pkg/mediation/sandbox"
	"adsbridge/pkg/plugin"
)

// Options tune a session beyond what the config file carries.
type Options struct {
	// SDK replaces the sandbox SDK. The caller owns its shutdown.
	SDK mediation.SDK

	// ObserveDeliveries logs every delivery outcome.
	ObserveDeliveries bool
}

// Session coordinates a single bridge run.
//
// It owns:
//   - one host with one launched runtime,
//   - one mediation SDK (the sandbox unless Options.SDK is set),
//   - one delivery bus and the command worker consuming it,
//   - and (optionally) one journal writer.
type Session struct {
	cfg *config.Config
	log *slog.Logger

	host       *host.Host
	runtime    *host.Runtime
	sdk        mediation.SDK
	sandbox    *sandbox.SDK
	bus        *bus.Bus
	dispatcher *dispatch.Dispatcher
	plugin     *plugin.Plugin
	journal    *journal.Journal

	cancelWorkers context.CancelFunc
	workers       sync.WaitGroup
	closeOnce     sync.Once
}

func Start(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		cfg:           cfg,
		log:           log.With("component", "bridge"),
		bus:           bus.New(),
		cancelWorkers: func() {},
	}

	s.sdk = opts.SDK
	if s.sdk == nil {
		s.sandbox = sandbox.New(cfg.Sandbox, log)
		s.sdk = s.sandbox
	}

	s.dispatcher = dispatch.New(cfg.Plugin.Provider, s.bus, log)
	s.host = host.New(host.Options{
		AppName:    cfg.Host.AppName,
		Build:      cfg.Host.Build,
		QueueLimit: cfg.Host.QueueLimit,
	}, log)
	s.plugin = plugin.New(cfg.Plugin, s.sdk, s.host.Activity(), s.dispatcher, log)
	s.plugin.Install(s.host)

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.journal = j
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	s.cancelWorkers = cancelWorkers

	if s.journal != nil {
		deliveries, unsubscribe := s.bus.SubscribeDeliveries(workerCtx, 64)
		s.goWorker(func() {
			defer unsubscribe()
			s.journal.Run(workerCtx, deliveries)
		})
	}
	if opts.ObserveDeliveries {
		s.goWorker(func() { observeDeliveries(workerCtx, s.bus, log) })
	}
	s.goWorker(func() { s.runCommandWorker(workerCtx) })

	rt, err := s.host.Launch(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch runtime: %w", err)
	}
	s.runtime = rt

	return s, nil
}

// Run executes a script's main chunk on the session runtime.
func (s *Session) Run(ctx context.Context, name, source string) error {
	if s == nil || s.runtime == nil {
		return errors.New("bridge session is not started")
	}
	return s.runtime.Start(ctx, name, source)
}

func (s *Session) Runtime() *host.Runtime {
	return s.runtime
}

func (s *Session) Bus() *bus.Bus {
	return s.bus
}

func (s *Session) Plugin() *plugin.Plugin {
	return s.plugin
}

func (s *Session) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Sandbox returns the sandbox SDK, or nil when a custom SDK was supplied.
func (s *Session) Sandbox() *sandbox.SDK {
	return s.sandbox
}

// Journal returns the delivery journal, or nil when it is disabled.
func (s *Session) Journal() *journal.Journal {
	return s.journal
}

// Close exits the runtime, stops workers and releases the SDK and journal.
func (s *Session) Close() {
	if s == nil {
		return
	}

	s.closeOnce.Do(func() {
		if s.host != nil {
			s.host.Close()
		}
		if s.sandbox != nil {
			s.sandbox.Close()
		}

		s.bus.Close()
		s.cancelWorkers()
		s.workers.Wait()

		if s.journal != nil {
			if err := s.journal.Close(); err != nil {
				s.log.Error("Journal close failed", "error", err)
			}
		}
	})
}

func (s *Session) goWorker(fn func()) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		fn()
	}()
}
