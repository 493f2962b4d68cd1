package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/smarchetti/ticketdesk/pkg/api"
	"github.com/smarchetti/ticketdesk/pkg/cache"
	"github.com/smarchetti/ticketdesk/pkg/cascade"
	"github.com/smarchetti/ticketdesk/pkg/config"
	"github.com/smarchetti/ticketdesk/pkg/fetch"
	"github.com/smarchetti/ticketdesk/pkg/ui"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path to the YAML config file")
	project := flag.String("project", "", "Override the configured project key")
	debug := flag.Bool("debug", false, "Write debug logs to ticketdesk.log")
	help := flag.Bool("help", false, "Show help")
	version := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *help {
		fmt.Println("Usage: td [options]")
		fmt.Println("\nA TUI filter builder for the ticketing service.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *version {
		fmt.Println("td version 0.1.0")
		os.Exit(0)
	}

	logger := newLogger(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		fmt.Printf("Create %s with at least base_url and project.\n", *configPath)
		os.Exit(1)
	}
	if *project != "" {
		cfg.Project = *project
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "td requires an interactive terminal")
		os.Exit(1)
	}

	client := api.NewClient(cfg.BaseURL,
		api.WithBasicAuth(cfg.Username, cfg.Token),
		api.WithLogger(logger))
	dispatcher := fetch.NewDispatcher(client, fetch.Options{
		Project:         cfg.Project,
		PageSize:        cfg.PageSize,
		BatchCeiling:    cfg.BatchCeiling,
		HybridThreshold: cfg.HybridThreshold,
	}, logger)
	valueCache := cache.NewValueCache(cfg.CacheTTL.Std())
	resolver := fetch.NewResolver(dispatcher, valueCache, logger)
	controller := cascade.NewController(resolver, logger)

	m := ui.NewModel(resolver, controller, cfg.Project, cfg.DebounceInterval.Std(), ui.DefaultTheme(nil))

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Hot-reload the tuning knobs that can change without a restart.
	watcher, err := config.Watch(*configPath, func(next config.Config) {
		valueCache.SetTTL(next.CacheTTL.Std())
		p.Send(ui.ConfigReloadedMsg{DebounceInterval: next.DebounceInterval.Std()})
		logger.Info("config reloaded",
			"cache_ttl", next.CacheTTL.Std(),
			"debounce_interval", next.DebounceInterval.Std())
	}, logger)
	if err != nil {
		logger.Warn("config watch unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running td: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f, err := os.OpenFile("ticketdesk.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ticketdesk.yaml"
	}
	return filepath.Join(home, ".config", "ticketdesk", "config.yaml")
}
