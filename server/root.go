package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rexlx/volblog/blog"
	"github.com/rexlx/volblog/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "volblog",
	Short: "volblog - a small blog with search and related posts",
	Long: `volblog serves a blog with tag listings, full text search over titles,
related posts by shared tags, comments, share-by-email and an RSS feed.

Configuration is read from an ini file (see --config) and can be overridden
with VOLBLOG_<SECTION>_<KEY> environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the ini configuration file")
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.NewConfig(configPath, newLogger(false))
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.GetBool(config.KeyServerDebug))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openDatabase connects to PostgreSQL. Admin commands need a real database;
// serve falls back to the in-memory store instead of calling this.
func openDatabase(ctx context.Context, cfg *config.Config) (*blog.Database, error) {
	url := cfg.GetString(config.KeyDBURL)
	if url == "" {
		return nil, errors.New("no database configured: set Database.URL")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return blog.NewDatabase(ctx, blog.DatabaseConfig{
		ConnectionString: url,
		MaxConnections:   int32(cfg.GetInt(config.KeyDBMaxConns)),
		Location:         loc,
	})
}

// openCache returns the Redis cache when Redis.Addr is set, the in-memory
// cache otherwise. The returned func releases the connection.
func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blog.Cache, func()) {
	addr := cfg.GetString(config.KeyRedisAddr)
	if addr == "" {
		logger.Info("Redis.Addr not set, caching in memory")
		return blog.NewMemoryCache(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.GetString(config.KeyRedisPassword),
		DB:       cfg.GetInt(config.KeyRedisDB),
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, caching in memory", slog.String("addr", addr), slog.Any("error", err))
		client.Close()
		return blog.NewMemoryCache(), func() {}
	}
	logger.Info("connected to redis", slog.String("addr", addr))
	return blog.NewRedisCache(client), func() { client.Close() }
}
