package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rexlx/volblog/blog"
	"github.com/rexlx/volblog/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the blog HTTP server",
	Long: `Run the blog HTTP server and the scheduled publishing job.

Without Database.URL the blog runs on an in-memory store, useful for trying
the templates out; everything is lost on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var store blog.Store
	if cfg.GetString(config.KeyDBURL) != "" {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return fmt.Errorf("could not initialize database: %w", err)
		}
		logger.Info("connected to the database")
		if err := db.Migrate("up"); err != nil {
			db.Close()
			return err
		}
		store = db
	} else {
		logger.Warn("Database.URL not set, using the in-memory store")
		store = blog.NewMemStore(loc)
	}
	defer store.Close()

	cache, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()

	var mailer blog.Mailer = blog.LogMailer{Logger: logger}
	if host := cfg.GetString(config.KeyMailHost); host != "" {
		smtpMailer, err := blog.NewSMTPMailer(blog.SMTPConfig{
			Host:     host,
			Port:     cfg.GetInt(config.KeyMailPort),
			Username: cfg.GetString(config.KeyMailUsername),
			Password: cfg.GetString(config.KeyMailPassword),
			ForceSSL: cfg.GetBool(config.KeyMailForceSSL),
		})
		if err != nil {
			return err
		}
		mailer = smtpMailer
	} else {
		logger.Info("Mail.Host not set, outgoing mail is logged")
	}

	baseURL := cfg.GetString(config.KeySiteBaseURL)
	sessions := scs.New()
	sessions.Lifetime = cfg.GetDuration(config.KeySessionLifetime)
	sessions.Cookie.Name = "volblog_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = strings.HasPrefix(baseURL, "https://")

	renderer, err := blog.NewRenderer()
	if err != nil {
		return err
	}
	if dir := cfg.GetString(config.KeyTemplateDir); dir != "" && cfg.GetBool(config.KeyServerDebug) {
		if err := blog.WatchDir(ctx, renderer, dir, logger); err != nil {
			return fmt.Errorf("template dir: %w", err)
		}
		logger.Info("reloading templates on change", slog.String("dir", dir))
	}

	limiter := blog.NewRateLimiter(cfg.GetInt(config.KeyRateLimitPerMin), cfg.GetInt(config.KeyRateLimitBurst))
	go limiter.Cleanup(ctx, time.Minute, 10*time.Minute)

	title := cfg.GetString(config.KeySiteTitle)
	description := cfg.GetString(config.KeySiteDescription)
	feed := blog.NewFeed(store, cache, logger, title, description)

	handlers, err := blog.NewHandlers(blog.HandlerConfig{
		Store:           store,
		Mailer:          mailer,
		Cache:           cache,
		Feed:            feed,
		Sessions:        sessions,
		Renderer:        renderer,
		RateLimiter:     limiter,
		Logger:          logger,
		Location:        loc,
		BaseURL:         baseURL,
		MailFrom:        cfg.GetString(config.KeyMailFrom),
		SiteTitle:       title,
		SiteDescription: description,
	})
	if err != nil {
		return fmt.Errorf("could not create blog handlers: %w", err)
	}

	blog.StartScheduler(ctx, blog.NewPublishScheduledJob(store, feed, logger), logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.GetInt(config.KeyServerPort)),
		Handler:           handlers.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting blog server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
