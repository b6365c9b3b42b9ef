package commands

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/trititantech/server/pkg/apiserver"
	"github.com/trititantech/server/pkg/backend"
	"github.com/trititantech/server/pkg/connection"
	"github.com/trititantech/server/pkg/db"
	"github.com/trititantech/server/pkg/download"
	"github.com/trititantech/server/pkg/version"
	"github.com/urfave/cli/v2"
)

const (
	connectModeLazy  = "lazy"
	connectModeEager = "eager"
)

type apiServerCommand struct{}

// serverConfig is the validated view of the api-server flags.
type serverConfig struct {
	Port              int
	Store             db.Options
	ConnectMode       string
	HeartbeatInterval time.Duration
	DefaultProduct    string
	DownloadURL       string
	DownloadName      string
	DownloadSuffix    string
	Download          download.Options
}

func configFromContext(c *cli.Context) (serverConfig, error) {
	cfg := serverConfig{
		Port: c.Int("port"),
		Store: db.Options{
			Dialect:        c.String("store-dialect"),
			URI:            c.String("store-uri"),
			Database:       c.String("store-database"),
			UniqueEmail:    c.Bool("unique-email"),
			ConnectTimeout: c.Duration("connect-timeout"),
			LogLevel:       c.String("log-level"),
		},
		ConnectMode:       c.String("connect-mode"),
		HeartbeatInterval: c.Duration("heartbeat-interval"),
		DefaultProduct:    c.String("default-product"),
		DownloadURL:       c.String("download-url"),
		DownloadName:      c.String("download-default-name"),
		DownloadSuffix:    c.String("download-suffix"),
		Download: download.Options{
			UserAgent: c.String("download-user-agent"),
			Timeout:   c.Duration("download-timeout"),
			MaxBytes:  c.Int64("download-max-bytes"),
		},
	}

	if cfg.Download.UserAgent == "" {
		cfg.Download.UserAgent = fmt.Sprintf("%s/%s", path.Base(c.App.Name), version.Get().Tag)
	}

	return cfg, cfg.validate()
}

func (cfg serverConfig) validate() error {
	var errs []error
	if cfg.Store.URI == "" {
		errs = append(errs, errors.New("store-uri (MONGODB_URI) must be set"))
	}
	if !db.IsValidDialect(cfg.Store.Dialect) {
		errs = append(errs, fmt.Errorf("unsupported store-dialect %q", cfg.Store.Dialect))
	}
	if cfg.Store.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect-timeout must be positive"))
	}
	if cfg.ConnectMode != connectModeLazy && cfg.ConnectMode != connectModeEager {
		errs = append(errs, fmt.Errorf("connect-mode must be %q or %q, got %q", connectModeLazy, connectModeEager, cfg.ConnectMode))
	}
	if cfg.HeartbeatInterval < 0 {
		errs = append(errs, errors.New("heartbeat-interval must not be negative"))
	}
	if cfg.DownloadURL == "" {
		errs = append(errs, errors.New("download-url (DOWNLOAD_URL) must be set"))
	}
	if cfg.Download.MaxBytes <= 0 {
		errs = append(errs, errors.New("download-max-bytes must be positive"))
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", cfg.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalContext()

	log := logrus.WithField("command", "api-server")

	log.Infof("version: %v", version.Get())

	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}

	source, err := download.NewSource(cfg.DownloadURL, cfg.Download)
	if err != nil {
		return err
	}

	store := cfg.Store
	conn := connection.NewManager(func(ctx context.Context, notify func(error)) (db.Database, error) {
		opts := store
		opts.OnFailure = notify
		return db.Open(ctx, opts)
	}, store.ConnectTimeout, log)

	if cfg.ConnectMode == connectModeEager {
		go func() {
			if _, err := conn.EnsureConnected(ctx); err != nil {
				log.WithError(err).Error("initial store connection failed; will retry on demand")
			}
		}()
	}

	back := backend.NewBackend(conn, source, backend.Options{
		DefaultProduct:      cfg.DefaultProduct,
		DownloadDefaultName: cfg.DownloadName,
		DownloadSuffix:      cfg.DownloadSuffix,
		HeartbeatInterval:   cfg.HeartbeatInterval,
	}, log)

	apiServer := apiserver.NewAPIServer(ctx, log, cfg.Port, store.URI != "")

	if err := apiServer.Start(back); err != nil {
		return err
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Close(closeCtx); err != nil {
		log.WithError(err).Warn("unable to close store connection")
	}

	return nil
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"LEADS_PORT", "PORT"},
			Value:   8080,
		},
		&cli.StringFlag{
			Name:    "store-dialect",
			Usage:   "The type of store to use: mongodb, sqlite or mysql",
			EnvVars: []string{"STORE_DIALECT"},
			Value:   db.DialectMongo,
		},
		&cli.StringFlag{
			Name:    "store-uri",
			Usage:   "The connection string (mongodb URI or sql DSN) of the store. Required",
			EnvVars: []string{"MONGODB_URI", "STORE_URI"},
		},
		&cli.StringFlag{
			Name:    "store-database",
			Usage:   "The mongodb database name. Defaults to the database in the URI, then \"leads\"",
			EnvVars: []string{"STORE_DATABASE"},
		},
		&cli.DurationFlag{
			Name:    "connect-timeout",
			Usage:   "How long a single connection attempt may take",
			EnvVars: []string{"CONNECT_TIMEOUT"},
			Value:   connection.DefaultConnectTimeout,
		},
		&cli.StringFlag{
			Name:    "connect-mode",
			Usage:   "lazy connects on the first request, eager also connects at startup",
			EnvVars: []string{"CONNECT_MODE"},
			Value:   connectModeLazy,
		},
		&cli.DurationFlag{
			Name:    "heartbeat-interval",
			Usage:   "How often the live store connection is pinged. 0 disables",
			EnvVars: []string{"HEARTBEAT_INTERVAL"},
			Value:   30 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "unique-email",
			Usage:   "Declare a unique index on email and reject duplicate registrations",
			EnvVars: []string{"UNIQUE_EMAIL"},
		},
		&cli.StringFlag{
			Name:    "default-product",
			Usage:   "Product label stored when a submission has none",
			EnvVars: []string{"DEFAULT_PRODUCT"},
			Value:   backend.DefaultProduct,
		},
		&cli.StringFlag{
			Name:    "download-url",
			Usage:   "The http(s) or s3://bucket/key object served by /api/download. Required",
			EnvVars: []string{"DOWNLOAD_URL"},
		},
		&cli.StringFlag{
			Name:    "download-default-name",
			Usage:   "Attachment name used when the request does not name one",
			EnvVars: []string{"DOWNLOAD_DEFAULT_NAME"},
			Value:   backend.DefaultDownloadName,
		},
		&cli.StringFlag{
			Name:    "download-suffix",
			Usage:   "Suffix appended to attachment names, e.g. .pdf",
			EnvVars: []string{"DOWNLOAD_SUFFIX"},
		},
		&cli.StringFlag{
			Name:    "download-user-agent",
			Usage:   "User-Agent sent to the download origin. Defaults to <app>/<version>",
			EnvVars: []string{"DOWNLOAD_USER_AGENT"},
		},
		&cli.DurationFlag{
			Name:    "download-timeout",
			Usage:   "Timeout for fetching the download origin",
			EnvVars: []string{"DOWNLOAD_TIMEOUT"},
			Value:   download.DefaultTimeout,
		},
		&cli.Int64Flag{
			Name:    "download-max-bytes",
			Usage:   "Largest upstream body that will be buffered and served",
			EnvVars: []string{"DOWNLOAD_MAX_BYTES"},
			Value:   download.DefaultMaxBytes,
		},
	}

	return &cli.Command{
		Name:   "api-server",
		Usage:  "lead capture api server",
		Action: cmd.Execute,
		Flags:  append(flags, GlobalFlags()...),
		Before: Before,
	}
}
