package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailgrid/mailgrid/internal/cache"
	"github.com/mailgrid/mailgrid/internal/config"
	"github.com/mailgrid/mailgrid/internal/gmail"
	"github.com/mailgrid/mailgrid/internal/services"
	"github.com/mailgrid/mailgrid/internal/tui"
	"github.com/mailgrid/mailgrid/internal/version"
	"github.com/mailgrid/mailgrid/pkg/auth"
)

const metadataWorkers = 5

func main() {
	var (
		configPath      string
		credentialsPath string
		showVersion     bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file (default ~/.config/mailgrid/config.json)")
	flag.StringVar(&credentialsPath, "credentials", "", "path to Gmail OAuth credentials JSON")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	if err := run(configPath, credentialsPath); err != nil {
		fmt.Fprintf(os.Stderr, "mailgrid: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, credentialsPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if credentialsPath != "" {
		cfg.Credentials = credentialsPath
	}
	if cfg.Credentials == "" {
		cfg.Credentials = filepath.Join(config.DefaultConfigDir(), "credentials.json")
	}
	if cfg.Token == "" {
		cfg.Token = filepath.Join(config.DefaultConfigDir(), "token.json")
	}

	ctx := context.Background()

	oauth := auth.NewOAuth2Config(cfg.Credentials, cfg.Token)
	httpClient, err := oauth.Client(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	client, err := gmail.NewClientFromHTTP(ctx, httpClient)
	if err != nil {
		return fmt.Errorf("could not create Gmail client: %w", err)
	}

	repo := services.NewGmailThreadRepository(client, metadataWorkers)
	reader := services.NewReadStateService(repo)

	var store services.ContentStore
	var sqliteStore *cache.Store
	if cfg.Prefetch.Enabled {
		cachePath := cfg.Prefetch.CachePath
		if cachePath == "" {
			cachePath = config.DefaultCachePath()
		}
		sqliteStore, err = cache.Open(ctx, cachePath)
		if err != nil {
			// The TUI works without the persistent cache; fall back to
			// memory-only prefetching.
			fmt.Fprintf(os.Stderr, "mailgrid: prefetch cache unavailable: %v\n", err)
		} else {
			store = sqliteStore
			defer sqliteStore.Close()
		}
	}
	prefetcher := services.NewPrefetchService(repo, store, cfg.Prefetch.CacheEntries)

	theme := config.DefaultTheme()
	if cfg.Theme != "" {
		themePath := cfg.Theme
		if !filepath.IsAbs(themePath) {
			themePath = filepath.Join(config.DefaultConfigDir(), themePath)
		}
		if loaded, err := config.LoadTheme(themePath); err == nil {
			theme = loaded
		} else {
			fmt.Fprintf(os.Stderr, "mailgrid: theme %s: %v\n", cfg.Theme, err)
		}
	}

	app := tui.NewApp(cfg, theme, tui.Deps{
		Repo:       repo,
		Reader:     reader,
		Prefetcher: prefetcher,
		Identity:   repo,
	})
	return app.Run()
}

// loadConfig reads the config file, falling back to defaults when the default
// location does not exist yet. An explicit --config path must exist.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	path = config.DefaultConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}
