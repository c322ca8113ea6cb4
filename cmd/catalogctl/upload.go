package main

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
)

var uploadExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

type localImage struct {
	Path        string
	RelPath     string
	Key         string
	ContentType string
}

type uploadReport struct {
	Uploaded map[string]string
	Failed   map[string]error
}

// collectImages walks root and returns every supported image in path order.
// Keys are the slash-separated relative path under prefix.
func collectImages(root, prefix string) ([]localImage, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	prefix = strings.Trim(filepath.ToSlash(prefix), "/")

	var out []localImage
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		contentType, ok := uploadExtensions[ext]
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if byExt := mime.TypeByExtension(ext); strings.HasPrefix(byExt, "image/") {
			contentType = byExt
		}
		out = append(out, localImage{
			Path:        p,
			RelPath:     rel,
			Key:         path.Join(prefix, rel),
			ContentType: contentType,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

// uploadImages pushes every file and keeps going past individual failures.
func uploadImages(ctx context.Context, store storage.ObjectStore, files []localImage, concurrency int, logg *logger.Logger) uploadReport {
	if concurrency < 1 {
		concurrency = 1
	}
	report := uploadReport{Uploaded: map[string]string{}, Failed: map[string]error{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, file := range files {
		file := file
		g.Go(func() error {
			err := uploadOne(gctx, store, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[file.RelPath] = err
				logg.Error(logg.WithField(ctx, "path", file.RelPath), "upload failed", err)
				return nil
			}
			report.Uploaded[file.RelPath] = file.Key
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func uploadOne(ctx context.Context, store storage.ObjectStore, file localImage) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return store.Put(ctx, file.Key, file.ContentType, f, info.Size())
}
