package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/db"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|to|create|validate")
	dir := flag.String("dir", "", "migrations directory (empty uses the embedded set; create defaults to "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	// create and validate work on files only.
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		exitOn(err, "create migration")
		fmt.Println("created migration:", path)
		return
	case "validate":
		source, err := migrate.Source(*dir)
		exitOn(err, "open migrations")
		exitOn(migrate.Validate(source), "migration validation")
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	exitOn(err, "load config")
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	if cfg.DB.IsSQLite() {
		logg.Warn(ctx, "sqlite databases are migrated from the models by the api in dev; nothing to do")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(err, "extract sql.DB")
	source, err := migrate.Source(*dir)
	exitOn(err, "open migrations")
	runner, err := migrate.NewRunner(sqlDB, source, os.Stdout)
	exitOn(err, "build migration runner")

	switch *cmd {
	case "up":
		var applied int
		applied, err = runner.Up(ctx)
		if err == nil {
			logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
		}
	case "down":
		err = runner.Down(ctx)
	case "status":
		err = runner.Status(ctx)
	case "to":
		if *version == "" {
			err = fmt.Errorf("missing -version")
			break
		}
		err = runner.To(ctx, *version)
	default:
		err = fmt.Errorf("unknown -cmd value %q", *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func exitOn(err error, action string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
