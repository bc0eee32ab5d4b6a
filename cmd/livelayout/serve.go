package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/livefir/livelayout"
	"github.com/livefir/livelayout/internal/livereload"
	"github.com/livefir/livelayout/internal/logging"
)

const (
	shutdownTimeout = 5 * time.Second

	// statsPath serves Engine.Stats as JSON
	statsPath = "/_livelayout/stats"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve decorated pages over HTTP",
		Long: `Serves each template as a decorated page: /orders renders the orders
template and / renders index. With --reload, templates are watched and open
pages reload when a template they might use changes.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "localhost:8080", "address to listen on")
	cmd.Flags().Bool("reload", false, "reload open pages when templates change")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	reload, _ := cmd.Flags().GetBool("reload")
	if reload {
		cfg.Watch = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Component:   "livelayout",
	})
	if err != nil {
		return err
	}

	handler, err := newSite(cfg, logger, reload)
	if err != nil {
		return err
	}
	defer handler.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", cfg.TemplateDir, addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// hijacked reload sockets are not closed by Shutdown
	if handler.hub != nil {
		handler.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// site serves decorated pages and, with reload on, the reload socket
type site struct {
	*http.ServeMux
	engine *livelayout.Engine
	hub    *livereload.Hub
}

func newSite(cfg *livelayout.Config, logger *zap.Logger, reload bool) (*site, error) {
	s := &site{ServeMux: http.NewServeMux()}
	opts := []livelayout.Option{livelayout.WithLogger(logger)}
	if reload {
		s.hub = livereload.NewHub(logger.Named("livereload"))
		opts = append(opts, livelayout.WithChangeHook(s.hub.Notify))
		s.Handle(livereload.DefaultPath, s.hub)
	}

	engine, err := livelayout.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	pages := &pageHandler{engine: engine, suffix: cfg.Suffix, logger: logger}
	if reload {
		pages.script = livereload.Script(livereload.DefaultPath)
	}
	s.Handle(statsPath, http.HandlerFunc(s.serveStats))
	s.Handle("/", pages)
	return s, nil
}

func (s *site) serveStats(w http.ResponseWriter, r *http.Request) {
	largest := 10
	if v := r.URL.Query().Get("largest"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "largest must be a non-negative integer", http.StatusBadRequest)
			return
		}
		largest = n
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(s.engine.Stats(largest))
}

// Close disconnects open pages and stops the engine
func (s *site) Close() error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.engine.Close()
}

// pageHandler renders the template named by the request path
type pageHandler struct {
	engine *livelayout.Engine
	suffix string
	script string // injected before </body> when set
	logger *zap.Logger
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := pageName(r.URL.Path, h.suffix)
	var buf bytes.Buffer
	if err := h.engine.Render(r.Context(), name, &buf); err != nil {
		if errors.Is(err, livelayout.ErrNotFound) || errors.Is(err, livelayout.ErrInvalidName) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to render page",
			zap.String("template", name),
			zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := buf.Bytes()
	if h.script != "" {
		out = livereload.Inject(out, h.script)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(out)
}

// pageName maps a request path to a template name: "/" and "/docs/" are
// index pages, and a trailing suffix is ignored.
func pageName(urlPath, suffix string) string {
	if strings.HasSuffix(urlPath, "/") {
		urlPath += "index"
	}
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if suffix != "" {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}
