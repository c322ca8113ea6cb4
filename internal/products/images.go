package product

import (
	"context"
	"strings"

	"github.com/angelmondragon/catalog-backend/internal/media"
	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
	"gorm.io/gorm"
)

const (
	msgImageNotFound       = "Image not found"
	msgImagesRequired      = "Images array is required"
	msgImagesNotPermutated = "images must list every current image exactly once"
)

// DeleteImage detaches one image from the gallery and removes its blob.
func (s *service) DeleteImage(ctx context.Context, id int64, key string) error {
	key = strings.TrimSpace(key)
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return lookupError(err, msgProductNotFound)
	}
	image, err := s.repo.FindImage(ctx, id, key)
	if err != nil {
		return lookupError(err, msgImageNotFound)
	}
	ctx = s.logg.WithProductID(ctx, id)

	if err := s.writer.DeleteAll(ctx, []string{key}); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "key", key), "failed to delete image from storage", err)
	}
	s.invalidateImages(ctx, key)

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteImageByID(ctx, image.ID); err != nil {
			return storageError(err, "delete product image")
		}
		return compactGallery(ctx, repo, id)
	})
	if err != nil {
		return err
	}

	s.invalidateProduct(ctx, id)
	return nil
}

// ReorderImages rewrites the gallery order. keys must be a permutation of the
// current gallery.
func (s *service) ReorderImages(ctx context.Context, id int64, keys []string) error {
	if len(keys) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, msgImagesRequired)
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return lookupError(err, msgProductNotFound)
		}
		current, err := repo.ListImages(ctx, id)
		if err != nil {
			return storageError(err, "list product images")
		}
		currentKeys := make([]string, 0, len(current))
		for _, img := range current {
			currentKeys = append(currentKeys, img.ImageURL)
		}
		diff := media.DiffKeys(currentKeys, keys)
		if !diff.IsPermutation() {
			return pkgerrors.New(pkgerrors.CodeValidation, msgImagesNotPermutated).WithDetails(diff)
		}
		for i, key := range keys {
			if err := repo.SetImageOrder(ctx, id, key, i); err != nil {
				return storageError(err, "update image order")
			}
		}
		_, err = resyncPrimaryImage(ctx, repo, id)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidateProduct(ctx, id)
	return nil
}

// resyncPrimaryImage points Product.image at the lowest ordered gallery row,
// or clears it when the gallery is empty. Every gallery mutation calls it
// inside its transaction.
func resyncPrimaryImage(ctx context.Context, repo *Repository, productID int64) (string, error) {
	images, err := repo.ListImages(ctx, productID)
	if err != nil {
		return "", storageError(err, "list product images")
	}
	primary := ""
	if len(images) > 0 {
		primary = images[0].ImageURL
	}
	if err := repo.SetPrimaryImage(ctx, productID, primary); err != nil {
		return "", storageError(err, "update primary image")
	}
	return primary, nil
}

// compactGallery renumbers the remaining gallery densely from 0 and resyncs
// the primary image.
func compactGallery(ctx context.Context, repo *Repository, productID int64) error {
	remaining, err := repo.ListImages(ctx, productID)
	if err != nil {
		return storageError(err, "list product images")
	}
	for i, img := range remaining {
		if img.DisplayOrder == i {
			continue
		}
		if err := repo.SetImageOrder(ctx, productID, img.ImageURL, i); err != nil {
			return storageError(err, "renumber product images")
		}
	}
	_, err = resyncPrimaryImage(ctx, repo, productID)
	return err
}
