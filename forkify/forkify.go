// Package forkify wires the recipe application together: bookmark storage,
// the recipe source, the state store, the controller and its surfaces (web
// front end and MCP tools).
//
// Usage:
//
//	app, err := forkify.New(ctx, cfg, logger)
//	defer app.Close()
//	app.Controller().Search(ctx, "pizza")     // drive it directly
//	app.Serve(ctx)                            // or serve the web front end
//	app.ServeMCP(ctx, &mcp.StdioTransport{})  // or the MCP tools
package forkify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/forkify/bookmarkdb"
	"github.com/hazyhaar/forkify/controller"
	"github.com/hazyhaar/forkify/forkifyapi"
	"github.com/hazyhaar/forkify/idgen"
	"github.com/hazyhaar/forkify/recipeapi"
	"github.com/hazyhaar/forkify/state"
	"github.com/hazyhaar/forkify/watch"
	"github.com/hazyhaar/forkify/web"
)

// Version is reported by the MCP server.
const Version = "1.0.0"

// App is the running application.
type App struct {
	config    *Config
	logger    *slog.Logger
	bookmarks *bookmarkdb.Store
	store     *state.Store
	ctrl      *controller.Controller

	offline    *recipeapi.Store
	offlineSrv *http.Server
}

// New opens the bookmark database, starts the offline API when enabled,
// and builds the store and controller.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{config: cfg, logger: logger}

	marks, err := bookmarkdb.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("forkify: %w", err)
	}
	a.bookmarks = marks

	api := forkifyapi.Config{
		BaseURL:  cfg.API.BaseURL,
		Key:      os.ExpandEnv(cfg.API.Key),
		Timeout:  cfg.API.Timeout,
		MaxBytes: cfg.API.MaxBytes,
	}
	if cfg.Offline.Enabled {
		if err := a.startOffline(ctx, &api); err != nil {
			a.Close()
			return nil, err
		}
	}
	src := forkifyapi.New(api, nil, logger)

	st, err := state.New(ctx, src, marks,
		state.WithResultsPerPage(cfg.ResultsPerPage),
		state.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("forkify: %w", err)
	}
	a.store = st

	ctrl, err := controller.New(st, controller.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("forkify: %w", err)
	}
	a.ctrl = ctrl
	return a, nil
}

// startOffline seeds the bundled API, serves it on a loopback listener and
// points api at it. Without a configured key one is minted for the process.
func (a *App) startOffline(ctx context.Context, api *forkifyapi.Config) error {
	cfg := a.config.Offline
	s, err := recipeapi.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("forkify: offline: %w", err)
	}
	a.offline = s

	recipes, err := recipeapi.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("forkify: offline: %w", err)
	}
	n, err := s.Seed(ctx, recipes)
	if err != nil {
		return fmt.Errorf("forkify: offline: %w", err)
	}

	if api.Key == "" {
		api.Key = idgen.UUIDv7()()
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("forkify: offline: %w", err)
	}
	a.offlineSrv = &http.Server{
		Handler:           recipeapi.NewServer(s, api.Key, a.logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.offlineSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("forkify: offline api", "error", err)
		}
	}()

	api.BaseURL = "http://" + ln.Addr().String() + recipeapi.BasePath
	a.logger.Info("forkify: offline api started", "addr", ln.Addr().String(), "seeded", n, "db", cfg.DBPath)
	return nil
}

// Controller returns the controller.
func (a *App) Controller() *controller.Controller { return a.ctrl }

// Store returns the state store.
func (a *App) Store() *state.Store { return a.store }

// Handler returns the web front end.
func (a *App) Handler() http.Handler {
	return web.New(a.ctrl, web.Config{
		MaxFormBytes: a.config.Web.MaxFormBytes,
		Uploads:      a.config.Web.UploadsPerMinute,
		UploadWindow: time.Minute,
	}, a.logger).Handler()
}

// WatchBookmarks reloads the bookmark list whenever another process saves
// it, until ctx is done. It returns at once when polling is disabled.
func (a *App) WatchBookmarks(ctx context.Context) {
	if a.config.BookmarksPoll < 0 {
		return
	}
	w := watch.New(a.bookmarks.Version, watch.Options{
		Interval: a.config.BookmarksPoll,
		Logger:   a.logger,
	})
	reload := func() error { return a.ctrl.ReloadBookmarks(ctx) }

	// Saves since New ran are picked up by the first reload; saves after
	// the baseline read show up as a change.
	since, err := a.bookmarks.Version(ctx)
	if err != nil {
		a.logger.Warn("forkify: bookmark version", "error", err)
		w.OnChange(ctx, reload)
		return
	}
	if err := reload(); err != nil {
		a.logger.Warn("forkify: reload bookmarks", "error", err)
	}
	w.OnChangeSince(ctx, since, reload)
}

// Serve runs the web front end on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	go a.WatchBookmarks(ctx)
	srv := &http.Server{
		Addr:              a.config.Web.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("forkify: web starting", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("forkify: web: %w", err)
	case <-ctx.Done():
	}
	a.logger.Info("forkify: web shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// MCPServer returns an MCP server carrying the forkify tools.
func (a *App) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "forkify", Version: Version}, nil)
	a.ctrl.RegisterMCP(srv)
	return srv
}

// ServeMCP serves the tools over t until the session ends or ctx is done.
func (a *App) ServeMCP(ctx context.Context, t mcp.Transport) error {
	a.logger.Info("forkify: mcp serving")
	go a.WatchBookmarks(ctx)
	return a.MCPServer().Run(ctx, t)
}

// Close stops the offline API and closes the databases.
func (a *App) Close() error {
	var errs []error
	if a.offlineSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.offlineSrv.Shutdown(ctx))
		cancel()
	}
	if a.offline != nil {
		errs = append(errs, a.offline.Close())
	}
	if a.bookmarks != nil {
		errs = append(errs, a.bookmarks.Close())
	}
	return errors.Join(errs...)
}
