// Package server wires the composition engine into an HTTP server: the
// editor page, the isolated preview frame, the frame websocket, and the
// JSON command API over the editor controller.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/conduitcms/composer/internal/channel"
	"github.com/conduitcms/composer/internal/config"
	"github.com/conduitcms/composer/internal/editor"
	"github.com/conduitcms/composer/internal/logging"
	"github.com/conduitcms/composer/internal/patterns"
	"github.com/conduitcms/composer/internal/registry"
	"github.com/conduitcms/composer/internal/renderer"
)

// EditorServer hosts one editing session.
type EditorServer struct {
	config     *config.Config
	logger     logging.Logger
	registry   *registry.BlockRegistry
	resolver   *patterns.Resolver
	renderer   *renderer.TreeRenderer
	controller *editor.Controller
	frame      *channel.Channel
	watcher    *registry.DefinitionWatcher
	httpServer *http.Server
}

// New assembles an editor server from its collaborators.
func New(
	cfg *config.Config,
	logger logging.Logger,
	reg *registry.BlockRegistry,
	resolver *patterns.Resolver,
	controller *editor.Controller,
) *EditorServer {
	s := &EditorServer{
		config:     cfg,
		logger:     logger.WithComponent("server"),
		registry:   reg,
		resolver:   resolver,
		renderer:   renderer.NewTreeRenderer(reg, resolver, logger),
		controller: controller,
	}

	s.frame = channel.NewChannel(
		controller,
		originValidator{allowed: cfg.Server.AllowedOrigins, host: cfg.Server.Host, port: cfg.Server.Port},
		channel.WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleEditor)
	mux.HandleFunc("/frame", s.handleFramePage)
	mux.HandleFunc("/ws/frame", s.frame.HandleFrame)
	mux.HandleFunc("/api/blocks", s.handleBlocks)
	mux.HandleFunc("/api/draft", s.handleDraft)
	mux.HandleFunc("/api/commands", s.handleCommands)
	mux.HandleFunc("/api/save", s.handleSave)
	mux.HandleFunc("/api/preview", s.handlePreview)
	mux.HandleFunc("/api/preview/fragment", s.handlePreviewFragment)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start runs the server until the context is cancelled. Controller changes
// are forwarded to the preview frame for the lifetime of the server.
func (s *EditorServer) Start(ctx context.Context) error {
	changes := s.controller.Subscribe()
	go s.forwardChanges(ctx, changes)

	if s.config.Blocks.HotReload {
		watcher, err := registry.NewDefinitionWatcher(s.registry, s.logger, s.config.Blocks.ReloadDebounce)
		if err != nil {
			s.logger.Warn(ctx, err, "definition hot reload unavailable")
		} else {
			s.watcher = watcher
			for _, dir := range s.config.Blocks.DefinitionPaths {
				if err := watcher.AddPath(dir); err != nil {
					s.logger.Warn(ctx, err, "cannot watch definition path", "path", dir)
				}
			}
			watcher.Start(ctx)
		}
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info(ctx, "editor server listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown tears the server down gracefully: channel listeners are
// detached, the watcher stopped, and in-flight requests drained.
func (s *EditorServer) Shutdown() error {
	s.frame.Close()
	if s.watcher != nil {
		_ = s.watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// forwardChanges pushes controller state changes to the preview frame.
// Every push carries full values, so a dropped event only delays
// convergence until the next one.
func (s *EditorServer) forwardChanges(ctx context.Context, changes <-chan editor.ChangeEvent) {
	defer s.controller.Unsubscribe(changes)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-changes:
			if !ok {
				return
			}
			switch event.Kind {
			case editor.ChangeTree:
				s.frame.PushBlocks(event.Tree, event.SelectedID)
			case editor.ChangeSelection:
				s.frame.PushSelection(event.SelectedID)
			}
		}
	}
}

// originValidator accepts the server's own origin plus any configured
// extras. Messages from anything else are rejected before the websocket
// upgrade.
type originValidator struct {
	allowed []string
	host    string
	port    int
}

func (v originValidator) IsAllowedOrigin(origin string) bool {
	self := fmt.Sprintf("%s:%d", v.host, v.port)
	if strings.HasSuffix(origin, "://"+self) {
		return true
	}
	for _, allowed := range v.allowed {
		if origin == allowed {
			return true
		}
	}
	return false
}
