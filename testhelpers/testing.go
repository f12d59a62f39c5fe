package testhelpers

import (
	"context"
	"os"
	"testing"

	"binledger/internal/models"
	"binledger/internal/repositories"
	"binledger/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TestDB holds the database connection for integration tests
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema. The test
// is skipped when no database is configured.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(context.Background(), pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

func IntPtr(i int) *int {
	return &i
}

// SeedBin creates an active generic bin
func SeedBin(t *testing.T, store repositories.Store, name string, maxCapacity *int) *models.Bin {
	t.Helper()

	bin := &models.Bin{
		ID:          uuid.New(),
		Name:        name,
		Type:        models.BinTypeGeneric,
		Status:      models.BinStatusActive,
		MaxCapacity: maxCapacity,
	}
	if err := store.Bins().Create(context.Background(), bin); err != nil {
		t.Fatalf("Failed to create test bin: %v", err)
	}
	return bin
}

// InjectUnloggedStock sets an item's quantity without writing a ledger entry,
// the way a direct database edit would.
func InjectUnloggedStock(t *testing.T, store repositories.Store, binID, itemID uuid.UUID, itemName string, quantity int) {
	t.Helper()

	ctx := context.Background()
	item := &models.BinItem{BinID: binID, ItemID: itemID, ItemName: itemName, CostPerUnit: decimal.Zero}
	if _, err := store.BinItems().EnsureExists(ctx, item); err != nil {
		t.Fatalf("Failed to create bin item: %v", err)
	}
	item.Quantity = quantity
	if err := store.BinItems().UpdateQuantity(ctx, item); err != nil {
		t.Fatalf("Failed to set bin item quantity: %v", err)
	}
}
