package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/angelmondragon/catalog-backend/api/validators"
	"github.com/angelmondragon/catalog-backend/internal/cache"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
	pkgAuth "github.com/angelmondragon/catalog-backend/pkg/auth"
	"github.com/angelmondragon/catalog-backend/pkg/db"
	"github.com/angelmondragon/catalog-backend/pkg/enums"
	"github.com/angelmondragon/catalog-backend/pkg/redis"
	"github.com/angelmondragon/catalog-backend/pkg/storage/driver"
)

func (a *app) openReconciler(ctx context.Context) (*productsvc.Reconciler, func(), error) {
	dbClient, err := db.New(ctx, a.cfg.DB, a.logg)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap database: %w", err)
	}
	closeDB := func() {
		if err := dbClient.Close(); err != nil {
			a.logg.Error(ctx, "error closing database", err)
		}
	}
	reconciler, err := productsvc.NewReconciler(productsvc.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return reconciler, closeDB, nil
}

// invalidateList bumps the list generation so cached listings are recomputed.
// A missing redis only means there is nothing to invalidate.
func (a *app) invalidateList(ctx context.Context) {
	redisClient, err := redis.New(ctx, a.cfg.Redis, a.logg)
	if err != nil {
		a.logg.Warn(ctx, "redis unavailable, list cache not invalidated")
		return
	}
	defer redisClient.Close()
	if err := cache.New(redisClient, a.cfg.Cache, a.logg, nil).InvalidateList(ctx); err != nil {
		a.logg.Error(ctx, "failed to invalidate list cache", err)
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runFixCategories(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("fix-categories", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	reconciler, closeDB, err := a.openReconciler(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	names := enums.LegacyCategoryNames()
	sort.Strings(names)
	renamed := map[string]int64{}
	var total int64
	for _, from := range names {
		to, _ := enums.LegacyCategory(from)
		n, err := reconciler.RenameCategory(ctx, from, to.String())
		if err != nil {
			return fmt.Errorf("rename %s: %w", from, err)
		}
		renamed[from] = n
		total += n
		a.logg.Info(a.logg.WithFields(ctx, map[string]any{"from": from, "to": to.String(), "rows": n}), "category renamed")
	}

	if total > 0 {
		a.invalidateList(ctx)
	}
	return a.printJSON(map[string]any{"renamed": renamed, "total": total})
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import requires exactly one JSON file argument")
	}

	seeds, err := readSeeds(fs.Arg(0))
	if err != nil {
		return err
	}

	reconciler, closeDB, err := a.openReconciler(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := reconciler.Import(ctx, seeds)
	if len(result.Created) > 0 {
		a.invalidateList(ctx)
	}
	if err != nil {
		_ = a.printJSON(result)
		return err
	}
	return a.printJSON(result)
}

func readSeeds(path string) ([]productsvc.SeedProduct, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seeds []productsvc.SeedProduct
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range seeds {
		if err := validators.ValidateStruct(&seeds[i]); err != nil {
			return nil, fmt.Errorf("seed %d (%q): %w", i, seeds[i].Name, err)
		}
	}
	return seeds, nil
}

func runUploadImages(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("upload-images", flag.ContinueOnError)
	concurrency := fs.Int("concurrency", 4, "parallel uploads")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("upload-images requires <dir> [prefix]")
	}

	files, err := collectImages(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		a.logg.Warn(ctx, "no images found")
		return a.printJSON(map[string]string{})
	}

	store, err := driver.Open(ctx, a.cfg, a.logg)
	if err != nil {
		return err
	}

	report := uploadImages(ctx, store, files, *concurrency, a.logg)
	a.logg.Info(a.logg.WithFields(ctx, map[string]any{
		"uploaded": len(report.Uploaded),
		"failed":   len(report.Failed),
	}), "upload finished")

	if err := a.printJSON(report.Uploaded); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d uploads failed", len(report.Failed), len(files))
	}
	return nil
}

func runToken(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("sub", "", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("-sub is required")
	}
	token, err := pkgAuth.MintAdminToken(a.cfg.Admin, time.Now(), *subject, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, token)
	return err
}
