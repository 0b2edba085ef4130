package database

import (
	"context"
	"log"
	"os"
	"time"

	"go-biz-agent/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// TxTimeout bounds every multi-step transaction. Order and product
// writes do one extra sequence read per line item, so large carts can
// take a while on a loaded server.
const TxTimeout = 10 * time.Second

func Connect() {
	// 1. Get Credentials from .env file
	dsn := os.Getenv("DB_DSN")

	if dsn == "" {
		log.Fatal("❌ Error: DB_DSN not found in .env file. Please configure your database.")
	}

	var err error

	// 2. Connect with GORM (Wait for DB to be ready)
	for i := 0; i < 5; i++ {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		})
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database. Retrying in 2 seconds... (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatal("Failed to connect to database after 5 attempts:", err)
	}

	log.Println("✅ Successfully connected to MySQL!")

	Migrate(DB)

	log.Println("✅ Database Schema Synced!")
}

// Migrate syncs the schema. Split out of Connect so tests can run it
// against their own database handle.
func Migrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Customer{},
		&models.Service{},
		&models.Category{},
		&models.Warehouse{},
		&models.Product{},
		&models.WarehouseStock{},
		&models.StockMovement{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderServiceItem{},
		&models.AgentWorkflow{},
		&models.MediaFile{},
		&models.Sequence{},
	)
	if err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}
}

// RunInTransaction wraps fn in a single transaction with the bounded
// timeout. All multi-step mutations (order create/update/delete,
// product create/update/delete, order-service writes) go through here
// so stock changes, ledger appends and row writes are all-or-nothing.
func RunInTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), TxTimeout)
	defer cancel()
	return db.WithContext(ctx).Transaction(fn)
}

// ForUpdate adds a SELECT ... FOR UPDATE lock on dialects that support
// row locks. SQLite (used in tests) serializes writers on its own and
// rejects the clause.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
