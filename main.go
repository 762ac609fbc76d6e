package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"postsapi/app/config"
	"postsapi/app/logger"
	"postsapi/app/models"
	"postsapi/app/repositories"
	"postsapi/app/repositories/mock"
	"postsapi/app/routes"

	"go.uber.org/zap"
)

const cliVersion = "1.0.0"

// exit is swapped out by tests
var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches the subcommand named by os.Args[1]
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	cmd := strings.ToLower(os.Args[1])
	args := os.Args[2:]
	switch cmd {
	case "help":
		printHelp()
	case "version":
		fmt.Printf("postsapi version %s\n", cliVersion)
	case "serve":
		if err := serve(args); err != nil {
			fmt.Fprintf(os.Stderr, "serve: %v\n", err)
			exit(1)
		}
	case "seed":
		if err := seedCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "seed: %v\n", err)
			exit(1)
		}
	case "backup":
		if err := backupCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "backup: %v\n", err)
			exit(1)
		}
	case "restore":
		if err := restoreCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "restore: %v\n", err)
			exit(1)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		exit(1)
	}
}

func printHelp() {
	helpText := `Usage: postsapi <command> [options]
Commands:
  help                           Display this help message.
  version                        Show version information.
  serve [--config <file>] [--seed]
                                 Run the posts API server.
  seed  [--config <file>]        Insert sample posts and comments into an empty store.
  backup [--config <file>] [file]
                                 Dump the badger store (default data/backups/backup_<unix>.db).
  restore [--config <file>] <file>
                                 Load a dump written by backup into the badger store.

Settings are read from POSTS_* environment variables (POSTS_ADDR, POSTS_STORE,
POSTS_DB_PATH, POSTS_LOG_LEVEL, POSTS_LOG_DEV, POSTS_SHUTDOWN_TIMEOUT).
`
	fmt.Println(helpText)
}

type commonFlags struct {
	configFile string
	seed       bool
	args       []string
}

func parseFlags(name string, args []string, withSeed bool) (commonFlags, error) {
	var f commonFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.configFile, "config", "", "path to a config file")
	if withSeed {
		fs.BoolVar(&f.seed, "seed", false, "seed sample data before serving")
	}
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	f.args = fs.Args()
	return f, nil
}

// setup loads config, builds the logger and opens the configured store
func setup(configFile string) (config.Config, *zap.Logger, repositories.PostStore, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return cfg, nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return cfg, nil, nil, err
	}
	log.Info("store opened", zap.String("store", cfg.Store), zap.String("path", cfg.DBPath))
	return cfg, log, store, nil
}

func openStore(cfg config.Config) (repositories.PostStore, error) {
	switch cfg.Store {
	case config.StoreBadger:
		return repositories.OpenBadgerStore(cfg.DBPath)
	case config.StoreSQLite:
		return repositories.OpenSQLiteStore(cfg.DBPath)
	case config.StoreMemory:
		return mock.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func serve(args []string) error {
	flags, err := parseFlags("serve", args, true)
	if err != nil {
		return err
	}
	cfg, log, store, err := setup(flags.configFile)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.seed {
		n, err := seed(ctx, store)
		if err != nil {
			return err
		}
		log.Info("seeded store", zap.Int("posts", n))
	}

	srv := routes.NewServer(cfg.Addr, routes.SetupRoutes(store, log))
	return runServer(ctx, srv, log, cfg.ShutdownTimeout)
}

// runServer serves until ctx is cancelled, then shuts down gracefully
func runServer(ctx context.Context, srv *http.Server, log *zap.Logger, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting posts API", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func seedCommand(args []string) error {
	flags, err := parseFlags("seed", args, false)
	if err != nil {
		return err
	}
	_, log, store, err := setup(flags.configFile)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer store.Close()

	n, err := seed(context.Background(), store)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d posts\n", n)
	return nil
}

const backupDir = "data/backups"

// openBadger loads config and opens the badger store it names. Dumps only
// make sense for badger, so any other configured store is an error.
func openBadger(configFile string) (*repositories.BadgerStore, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if cfg.Store != config.StoreBadger {
		return nil, fmt.Errorf("store %q does not support dumps, use %q", cfg.Store, config.StoreBadger)
	}
	return repositories.OpenBadgerStore(cfg.DBPath)
}

func backupCommand(args []string) error {
	flags, err := parseFlags("backup", args, false)
	if err != nil {
		return err
	}
	store, err := openBadger(flags.configFile)
	if err != nil {
		return err
	}
	defer store.Close()

	target := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().Unix()))
	if len(flags.args) > 0 {
		target = flags.args[0]
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	if err := store.Backup(f); err != nil {
		return err
	}
	fmt.Printf("Backup created: %s\n", target)
	return nil
}

func restoreCommand(args []string) error {
	flags, err := parseFlags("restore", args, false)
	if err != nil {
		return err
	}
	if len(flags.args) < 1 {
		return errors.New("backup file path required")
	}

	f, err := os.Open(flags.args[0])
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()

	store, err := openBadger(flags.configFile)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Restore(f); err != nil {
		return err
	}
	fmt.Printf("Restored from %s\n", flags.args[0])
	return nil
}

var samplePosts = []struct {
	post     models.Post
	comments []string
}{
	{
		post: models.Post{
			Title:    "I wish the ring had never come to me. I wish none of this had happened.",
			Contents: "Guess who said this",
		},
		comments: []string{
			"I think this is Frodo.",
			"Definitely Frodo, in the mines of Moria.",
		},
	},
	{
		post: models.Post{
			Title:    "I think we should get off the road. Get off the road! Quick!",
			Contents: "Guess who said this",
		},
		comments: []string{"Frodo again, hiding from the Black Rider."},
	},
	{
		post: models.Post{
			Title:    "Not if I have anything to do with it. We shall meet again.",
			Contents: "Guess who said this",
		},
	},
}

// seed inserts the sample posts when the store is empty and returns how
// many posts were written.
func seed(ctx context.Context, store repositories.PostStore) (int, error) {
	existing, err := store.Find(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for _, sample := range samplePosts {
		post := sample.post
		if _, err := store.Insert(ctx, &post); err != nil {
			return 0, fmt.Errorf("insert post: %w", err)
		}
		for _, text := range sample.comments {
			comment := &models.Comment{Text: text}
			if err := comment.SetPost(&post); err != nil {
				return 0, err
			}
			if _, err := store.InsertComment(ctx, comment); err != nil {
				return 0, fmt.Errorf("insert comment: %w", err)
			}
		}
	}
	return len(samplePosts), nil
}
