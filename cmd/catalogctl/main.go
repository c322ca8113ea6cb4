package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
)

const usage = `usage: catalogctl <command> [flags]

commands:
  fix-categories            rename legacy categories to their current names
  import <file.json>        seed products whose images are already stored
  upload-images <dir> [prefix]
                            upload jpg/jpeg/png/webp files and print a path -> key map
  token -sub <name> [-ttl 24h]
                            mint an admin bearer token
`

type command func(ctx context.Context, app *app, args []string) error

var commands = map[string]command{
	"fix-categories": runFixCategories,
	"import":         runImport,
	"upload-images":  runUploadImages,
	"token":          runToken,
}

type app struct {
	cfg    *config.Config
	logg   *logger.Logger
	stdout io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "catalogctl", Output: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "catalogctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": os.Args[1]})

	if err := run(ctx, &app{cfg: cfg, logg: logg, stdout: os.Stdout}, os.Args[2:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		logg.Error(ctx, "command failed", err)
		os.Exit(1)
	}
}
