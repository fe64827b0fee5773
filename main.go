package main

import (
	"context"
	"damage-inspector/internal/config"
	"damage-inspector/internal/console"
	"damage-inspector/internal/detection"
	"damage-inspector/internal/download"
	"damage-inspector/internal/middleware"
	"damage-inspector/internal/terminal"
	"damage-inspector/internal/upload"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pterm/pterm"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	sessionSweepInterval = 10 * time.Minute
	shutdownTimeout      = 15 * time.Second

	// Per client IP, for uploads and detection starts.
	uploadRatePerSecond = 2
	uploadRateBurst     = 10
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "damage-inspector",
		Usage: "send images and videos to a damage detection backend and inspect the results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Usage: "detection backend origin (overrides BACKEND_URL)"},
			&cli.StringFlag{Name: "log-level", Usage: "logrus level (overrides LOG_LEVEL)"},
			&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout, 0 for none (overrides REQUEST_TIMEOUT)"},
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file to load", Value: ".env"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the web console",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "addr", Usage: "listen address (overrides CONSOLE_ADDR)"}},
				Action: serve,
			},
			{
				Name:      "detect",
				Usage:     "run detection on each file in turn",
				ArgsUsage: "<file>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "save", Usage: "download processed results into `DIR`"},
					&cli.StringFlag{Name: "archive", Usage: "bundle processed results into a ZIP at `FILE`"},
					&cli.BoolFlag{Name: "keep-going", Usage: "continue with the next file after a failure"},
				},
				Action: detect,
			},
			{
				Name:   "interactive",
				Usage:  "choose files and run detections from a menu",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "dir", Usage: "directory the file picker starts in", Value: "."}},
				Action: interactive,
			},
			{
				Name:   "health",
				Usage:  "check that the detection backend answers",
				Action: health,
			},
		},
	}
}

// loadConfig reads .env and the environment, then applies global flags
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load(c.String("env-file"))
	if c.IsSet("backend") {
		cfg.BackendURL = c.String("backend")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("timeout") {
		cfg.RequestTimeout = c.Duration("timeout")
	}
	cfg.ConfigureLogging()
	return cfg
}

func newDetectionClient(cfg *config.Config) (*detection.Client, error) {
	return detection.NewClient(cfg.BackendURL,
		detection.WithTimeout(cfg.RequestTimeout),
		detection.WithLogger(log.WithField("component", "detection")),
	)
}

func serve(c *cli.Context) error {
	cfg := loadConfig(c)
	if c.IsSet("addr") {
		cfg.ConsoleAddr = c.String("addr")
	}

	client, err := newDetectionClient(cfg)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	handler := initialize(c.Context, e, cfg, client)

	go func() {
		log.WithFields(log.Fields{
			"addr":    cfg.ConsoleAddr,
			"backend": client.BaseURL(),
		}).Info("Starting damage inspector console")
		if err := e.Start(cfg.ConsoleAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("console server stopped")
		}
	}()

	<-c.Context.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down console: %w", err)
	}
	handler.Wait()
	return nil
}

func initialize(ctx context.Context, e *echo.Echo, cfg *config.Config, client *detection.Client) *console.Handler {
	// One UploadClient per browser session, all publishing on one hub
	hub := console.NewHub()
	store := console.NewSessionStore(cfg.SessionTTL, console.NewSessionFactory(hub, client))
	store.StartCleanup(ctx, sessionSweepInterval)

	handler := console.NewHandler(ctx, store, hub, client, cfg.MaxUploadBytes)
	handler.RegisterRoutes(e, middleware.RateLimit(uploadRatePerSecond, uploadRateBurst))

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.BodyLimit(cfg.MaxUploadBytes))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.CORSConfig(cfg.AllowedOrigins))

	return handler
}

func detect(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("detect needs at least one file", 2)
	}

	cfg := loadConfig(c)
	client, err := newDetectionClient(cfg)
	if err != nil {
		return err
	}

	saver := download.NewService(client)
	opts := []terminal.BatchOption{terminal.WithKeepGoing(c.Bool("keep-going"))}
	if dir := c.String("save"); dir != "" {
		opts = append(opts, terminal.WithSaveDir(saver, dir))
	}
	if archive := c.String("archive"); archive != "" {
		opts = append(opts, terminal.WithArchive(saver, archive))
	}

	uploads := upload.New(terminal.NewView(), client)
	return terminal.NewBatch(uploads, opts...).Run(c.Context, paths)
}

func interactive(c *cli.Context) error {
	cfg := loadConfig(c)
	client, err := newDetectionClient(cfg)
	if err != nil {
		return err
	}

	picker := terminal.NewFilePicker(c.String("dir"))
	uploads := upload.New(terminal.NewView(), client, upload.WithPicker(picker))
	picker.Bind(uploads.Input().PickerChange)

	return terminal.NewMenu(uploads).Run(c.Context)
}

func health(c *cli.Context) error {
	cfg := loadConfig(c)
	client, err := newDetectionClient(cfg)
	if err != nil {
		return err
	}

	if err := client.Health(c.Context); err != nil {
		pterm.Error.Println(detection.GetErrorResponse(err).Message)
		return cli.Exit("", 1)
	}
	pterm.Success.Println("Detection backend is up at " + client.BaseURL())
	return nil
}
