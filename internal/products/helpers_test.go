package product

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/catalog-backend/internal/media"
	"github.com/angelmondragon/catalog-backend/pkg/db"
	"github.com/angelmondragon/catalog-backend/pkg/db/models"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/storage/memory"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingInvalidator struct {
	mu       sync.Mutex
	lists    int
	products []int64
	images   []string
}

func (r *recordingInvalidator) InvalidateImages(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, keys...)
	return nil
}

func (r *recordingInvalidator) InvalidateList(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	return nil
}

func (r *recordingInvalidator) InvalidateProduct(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = append(r.products, id)
	return nil
}

type testEnv struct {
	svc         Service
	repo        *Repository
	dbClient    *db.Client
	store       *memory.Store
	invalidator *recordingInvalidator
}

func openTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.ProductImage{}))
	return db.NewFromGorm(conn)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbClient := openTestDB(t)
	store := memory.New()
	writer, err := media.NewWriter(store)
	require.NoError(t, err)
	writer.WithClock(func() time.Time { return fixedNow })

	repo := NewRepository(dbClient.DB())
	invalidator := &recordingInvalidator{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	svc, err := NewService(repo, dbClient, writer, media.NewValidator(1024), invalidator, logg)
	require.NoError(t, err)

	return &testEnv{
		svc:         svc,
		repo:        repo,
		dbClient:    dbClient,
		store:       store,
		invalidator: invalidator,
	}
}

func png(name string) media.Upload {
	return media.FromBytes(name, "image/png", []byte("png:"+name))
}

func (e *testEnv) create(t *testing.T, name, category string, files ...string) int64 {
	t.Helper()
	uploads := make([]media.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, png(f))
	}
	id, err := e.svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     name,
		Category: category,
		Images:   uploads,
	})
	require.NoError(t, err)
	return id
}

func intPtr(v int) *int { return &v }
