// Command forkify is the recipe application: a web front end, MCP tools, or
// one-shot lookups printed as Markdown.
//
// Usage:
//
//	forkify -config forkify.yaml              # serve the web front end
//	forkify -offline                          # same, on the bundled recipe API
//	forkify -mcp                              # MCP tools over stdio
//	forkify -search pizza -page 2             # print a result page and exit
//	forkify -recipe <id> -servings 8          # print a recipe and exit
//	forkify -bookmarks                        # print the bookmarks and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/forkify/controller"
	"github.com/hazyhaar/forkify/forkify"
)

type options struct {
	configPath string
	dbPath     string
	apiURL     string
	addr       string
	offline    bool
	mcp        bool
	search     string
	page       int
	recipe     string
	servings   int
	bookmarks  bool
}

func (o options) oneShot() bool {
	return o.search != "" || o.recipe != "" || o.bookmarks
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to forkify.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "path to the bookmark SQLite database")
	flag.StringVar(&o.apiURL, "api", "", "recipe API base URL")
	flag.StringVar(&o.addr, "addr", "", "web listen address")
	flag.BoolVar(&o.offline, "offline", false, "use the bundled recipe API")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdio")
	flag.StringVar(&o.search, "search", "", "search query (print results and exit)")
	flag.IntVar(&o.page, "page", 1, "result page for -search")
	flag.StringVar(&o.recipe, "recipe", "", "recipe id (print recipe and exit)")
	flag.IntVar(&o.servings, "servings", 0, "rescale -recipe to this many servings")
	flag.BoolVar(&o.bookmarks, "bookmarks", false, "print bookmarks and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o, os.Stdout); err != nil {
		logger.Error("forkify: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options, out io.Writer) error {
	cfg, err := resolveConfig(o)
	if err != nil {
		return err
	}

	app, err := forkify.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer app.Close()

	if o.oneShot() {
		return printViews(ctx, app.Controller(), o, out)
	}
	if o.mcp {
		return app.ServeMCP(ctx, &mcp.StdioTransport{})
	}
	return app.Serve(ctx)
}

func resolveConfig(o options) (*forkify.Config, error) {
	cfg := &forkify.Config{}
	if o.configPath != "" {
		var err error
		if cfg, err = forkify.LoadConfigFile(o.configPath); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.addr != "" {
		cfg.Web.Addr = o.addr
	}
	if o.offline {
		cfg.Offline.Enabled = true
	}
	if cfg.API.Key == "" {
		cfg.API.Key = "${FORKIFY_API_KEY}"
	}
	return cfg, nil
}

// printViews runs the one-shot interactions in order and prints the views
// they changed.
func printViews(ctx context.Context, c *controller.Controller, o options, out io.Writer) error {
	var views []string
	if o.search != "" {
		if err := c.Search(ctx, o.search); err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if o.page != 1 {
			if err := c.Paginate(o.page); err != nil {
				return fmt.Errorf("page: %w", err)
			}
		}
		views = append(views, controller.ViewResults, controller.ViewPagination)
	}
	if o.recipe != "" {
		if err := c.ShowRecipe(ctx, o.recipe); err != nil {
			return fmt.Errorf("recipe: %w", err)
		}
		if o.servings > 0 {
			if err := c.UpdateServings(o.servings); err != nil {
				return fmt.Errorf("servings: %w", err)
			}
		}
		views = append(views, controller.ViewRecipe)
	}
	if o.bookmarks {
		views = append(views, controller.ViewBookmarks)
	}

	for _, name := range views {
		md, err := c.View(name).Markdown()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if md == "" {
			continue
		}
		fmt.Fprintln(out, md)
		fmt.Fprintln(out)
	}
	return nil
}
