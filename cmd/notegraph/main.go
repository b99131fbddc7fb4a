package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ritzau/notegraph/pkg/config"
	"github.com/ritzau/notegraph/pkg/linkgraph"
	"github.com/ritzau/notegraph/pkg/logging"
	"github.com/ritzau/notegraph/pkg/metrics"
	"github.com/ritzau/notegraph/pkg/output"
	"github.com/ritzau/notegraph/pkg/reconcile"
	"github.com/ritzau/notegraph/pkg/vault"
	"github.com/ritzau/notegraph/pkg/watcher"
	"github.com/ritzau/notegraph/pkg/web"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	flags := pflag.NewFlagSet("notegraph", pflag.ExitOnError)
	flags.String("vault", ".", "Vault directory, or the URL of a remote vault server")
	flags.Int("port", 8080, "Port for the web server")
	flags.Bool("watch", true, "Watch a local vault for changes and poll immediately")
	flags.Bool("serve-vault", false, "Also serve the local vault over HTTP for other notegraph processes")
	flags.Bool("report", false, "Print a link report for the vault and exit")
	flags.Duration("poll-interval", time.Second, "Delay between vault polls")
	flags.Int("undo-capacity", 50, "Snapshots kept for undo and redo")
	flags.Duration("suppress-cooldown", 1500*time.Millisecond, "Polling pause after undo or redo")
	flags.Duration("breaker-timeout", 30*time.Second, "How long a tripped remote vault breaker stays open")
	flags.String("verbosity", "", "Log level: quiet, info, debug, trace")
	flags.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	flags.Bool("json-logs", false, "Write logs as JSON")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := logging.Setup(cfg.Verbosity, cfg.VerboseCnt, cfg.JSONLogs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Report {
		if err := report(ctx, cfg); err != nil {
			logging.Fatal("report failed", "error", err)
		}
		return
	}

	if err := run(ctx, cfg); err != nil {
		logging.Fatal("notegraph failed", "error", err)
	}
}

// openVault returns the configured vault. dir is nil for a remote vault.
func openVault(cfg *config.Config) (store vault.Store, dir *vault.Dir, err error) {
	if config.IsRemote(cfg.Vault) {
		logging.Info("using remote vault", "url", cfg.Vault)
		return vault.NewClient(cfg.Vault, vault.ClientOptions{BreakerTimeout: cfg.Breaker.Timeout}), nil, nil
	}
	dir, err = vault.NewDir(cfg.Vault)
	if err != nil {
		return nil, nil, err
	}
	logging.Info("using vault directory", "path", dir.Root())
	logging.SetRoot(dir.Root())
	return dir, dir, nil
}

// report polls the vault and prints its link structure
func report(ctx context.Context, cfg *config.Config) error {
	store, dir, err := openVault(cfg)
	if err != nil {
		return err
	}
	root := cfg.Vault
	if dir != nil {
		root = dir.Root()
	}

	session := reconcile.New(store, nil, reconcile.Options{})
	defer session.Stop()

	// A vault with forward links takes a second pass to heal; after that polls are unchanged
	for i := 0; i < 3; i++ {
		outcome := session.PollOnce(ctx)
		if outcome == reconcile.FetchFailed {
			return fmt.Errorf("failed to read vault %s", cfg.Vault)
		}
		if outcome != reconcile.Applied {
			break
		}
	}

	output.PrintLinkReport(os.Stdout, root, linkgraph.New(session.Graph()))
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	collector := metrics.NewCollector()

	store, dir, err := openVault(cfg)
	if err != nil {
		return err
	}

	session := reconcile.New(store, store, reconcile.Options{
		PollInterval:     cfg.Poll.Interval,
		UndoCapacity:     cfg.Undo.Capacity,
		SuppressCooldown: cfg.Suppress.Cooldown,
		Metrics:          collector,
	})

	opts := web.Options{Metrics: collector}
	if cfg.ServeVault && dir != nil {
		opts.Vault = dir
	}
	server := web.NewServer(session, opts)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gctx, cfg.Port)
	})

	g.Go(func() error {
		if err := session.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		session.Stop()
		session.Wait()
		return nil
	})

	if cfg.Watch && dir != nil {
		g.Go(func() error {
			return watchVault(gctx, dir.Root(), session)
		})
	}

	return g.Wait()
}

// watchVault nudges the session whenever notes change on disk, so edits show up
// before the next scheduled poll.
func watchVault(ctx context.Context, root string, session *reconcile.Session) error {
	fw, err := watcher.NewFileWatcher(root)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	defer fw.Stop()

	debouncer := watcher.NewDebouncer(fw.Events(), 100*time.Millisecond, time.Second)
	debouncer.Start(ctx)

	for ev := range debouncer.Output() {
		logging.Debug("vault changed on disk", "files", len(ev.Paths))
		session.Nudge()
	}
	return nil
}
