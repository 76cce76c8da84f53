package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	_ "github.com/lib/pq"
	"golang.org/x/exp/slog"

	"github.com/alovak/cardcheck/checks"
	"github.com/alovak/cardcheck/internal/checker"
	"github.com/alovak/cardcheck/internal/publisher"
)

var version = "dev"

// CLI is the command line of cardcheck. Every flag is optional.
type CLI struct {
	Version   kong.VersionFlag `help:"Show version." short:"V"`
	Format    string           `help:"Output format: text or json." default:"text" enum:"text,json" env:"CARDCHECK_FORMAT"`
	LogLevel  string           `help:"Log level for stderr: debug, info, warn, error." default:"warn" env:"LOG_LEVEL"`
	Backend   string           `help:"Check store: mem or pg." default:"mem" enum:"mem,pg" env:"REPO_BACKEND"`
	DSN       string           `help:"Postgres DSN (pg backend)." env:"DB_DSN"`
	HashKey   string           `help:"HMAC key for stored card number hashes." default:"dev-secret-pepper" env:"PAN_HASH_KEY"`
	Serve     string           `help:"Serve the check report on this address until interrupted." env:"HTTP_ADDR" placeholder:"ADDR"`
	AMQPURL   string           `name:"amqp-url" help:"Publish every check to this AMQP broker." env:"AMQP_URL"`
	AMQPQueue string           `name:"amqp-queue" help:"AMQP queue for published checks." default:"card_checks" env:"AMQP_QUEUE"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("cardcheck"),
		kong.Description("Check the built-in card numbers and print whether each is valid."),
		kong.Vars{"version": version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.FatalIfErrorf(cli.Run(ctx, os.Stdout, os.Stderr))
}

func (c *CLI) config() *checks.Config {
	cfg := checks.DefaultConfig()
	cfg.HTTPAddr = c.Serve
	cfg.Backend = c.Backend
	cfg.DSN = c.DSN
	cfg.HashKey = c.HashKey
	cfg.AMQPURL = c.AMQPURL
	cfg.AMQPQueue = c.AMQPQueue
	return cfg
}

// Run checks the default candidates, then serves the report when asked to.
func (c *CLI) Run(ctx context.Context, stdout, stderr io.Writer) error {
	logger, err := newLogger(stderr, c.LogLevel)
	if err != nil {
		return err
	}

	format, err := checker.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	cfg := c.config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	opts := []checker.Option{checker.WithFormat(format), checker.WithRecorder(repo)}
	if cfg.AMQPURL != "" {
		pub, err := publisher.Dial(logger, cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("closing publisher", "err", err)
			}
		}()
		opts = append(opts, checker.WithRecorder(pub))
	}

	if _, err := checker.New(logger, stdout, opts...).Run(ctx, checker.DefaultCandidates()); err != nil {
		return err
	}

	if cfg.HTTPAddr == "" {
		return nil
	}
	return serve(ctx, logger, cfg, repo)
}

func openRepository(ctx context.Context, cfg *checks.Config) (*checks.Repository, error) {
	if cfg.Backend != "pg" {
		return checks.NewRepository(), nil
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := checks.NewPGRepository(db, []byte(cfg.HashKey))
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func serve(ctx context.Context, logger *slog.Logger, cfg *checks.Config, repo *checks.Repository) error {
	app := checks.NewApp(logger, cfg, repo)
	if err := app.Start(); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.Shutdown(shutdownCtx)
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
