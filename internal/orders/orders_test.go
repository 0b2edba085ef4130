package orders

import (
	"path/filepath"
	"testing"

	"go-biz-agent/internal/database"
	"go-biz-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminID    = uint(1)
	memberID   = uint(2)
	strangerID = uint(3)
	projectID  = uint(1)
	customerID = uint(1)
	productID  = uint(1)
	whID       = uint(1)
	serviceID  = uint(1)
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	database.Migrate(db)

	require.NoError(t, db.Create(&models.Project{ID: projectID, Name: "Acme"}).Error)
	require.NoError(t, db.Create(&models.User{ID: adminID, Username: "ana"}).Error)
	require.NoError(t, db.Create(&models.User{ID: memberID, Username: "ben"}).Error)
	require.NoError(t, db.Create(&models.User{ID: strangerID, Username: "sam"}).Error)
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: projectID, UserID: adminID, Role: models.RoleAdmin}).Error)
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: projectID, UserID: memberID, Role: models.RoleMember}).Error)
	require.NoError(t, db.Create(&models.Customer{ID: customerID, ProjectID: projectID, Name: "Dana", Email: "dana@acme.test"}).Error)
	require.NoError(t, db.Create(&models.Warehouse{ID: whID, ProjectID: projectID, Name: "North"}).Error)
	require.NoError(t, db.Create(&models.Product{ID: productID, ProjectID: projectID, Name: "Widget", Price: 25, Active: true}).Error)
	require.NoError(t, db.Create(&models.WarehouseStock{ProductID: productID, WarehouseID: whID, Quantity: 10}).Error)
	require.NoError(t, db.Create(&models.Service{ID: serviceID, ProjectID: projectID, Name: "Install", Price: 40, Active: true}).Error)
	return db
}

func stockQty(t *testing.T, db *gorm.DB) int {
	t.Helper()
	var stock models.WarehouseStock
	require.NoError(t, db.Where("product_id = ? AND warehouse_id = ?", productID, whID).First(&stock).Error)
	return stock.Quantity
}

func ledger(t *testing.T, db *gorm.DB) []models.StockMovement {
	t.Helper()
	var list []models.StockMovement
	require.NoError(t, db.Where("product_id = ?", productID).Order("id").Find(&list).Error)
	return list
}

func productOrderInput(qty int) CreateInput {
	return CreateInput{
		ProjectID:  projectID,
		CustomerID: customerID,
		Items:      []ItemInput{{ProductID: productID, WarehouseID: whID, Quantity: qty}},
	}
}

func strPtr(s string) *string { return &s }

func TestCreate_TypeDerivation(t *testing.T) {
	tests := []struct {
		name     string
		items    []ItemInput
		services []ServiceInput
		want     string
	}{
		{"products only", []ItemInput{{ProductID: productID, WarehouseID: whID, Quantity: 1}}, nil, models.TypeProduct},
		{"services only", nil, []ServiceInput{{ServiceID: serviceID, Quantity: 1}}, models.TypeService},
		{"both", []ItemInput{{ProductID: productID, WarehouseID: whID, Quantity: 1}}, []ServiceInput{{ServiceID: serviceID, Quantity: 1}}, models.TypeMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			order, err := Create(db, memberID, CreateInput{
				ProjectID: projectID, CustomerID: customerID,
				Items: tt.items, Services: tt.services,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, order.Type)
		})
	}
}

func TestCreate_DecrementsStockAndWritesLedger(t *testing.T) {
	db := testDB(t)

	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)

	assert.Equal(t, "o001", order.OrderNumber)
	assert.Equal(t, models.StatusNew, order.Status)
	assert.Equal(t, models.PaymentUnpaid, order.Payment)
	assert.Equal(t, 6, stockQty(t, db))

	list := ledger(t, db)
	require.Len(t, list, 1)
	assert.Equal(t, models.MovementOrderCreate, list[0].MovementType)
	assert.Equal(t, -4, list[0].Quantity)
	assert.Equal(t, 10, list[0].PreviousStock)
	assert.Equal(t, 6, list[0].NewStock)
	require.NotNil(t, list[0].OrderID)
	assert.Equal(t, order.ID, *list[0].OrderID)
}

func TestCreate_TotalAmount(t *testing.T) {
	db := testDB(t)

	input := CreateInput{
		ProjectID:     projectID,
		CustomerID:    customerID,
		Items:         []ItemInput{{ProductID: productID, WarehouseID: whID, Quantity: 2}}, // 2 * 25 = 50
		Services:      []ServiceInput{{ServiceID: serviceID, Quantity: 1}},                 // 40
		TaxPercentage: 19,
	}
	order, err := Create(db, memberID, input)
	require.NoError(t, err)

	// (50 + 40) * 1.19 = 107.10
	assert.InDelta(t, 107.10, order.TotalAmount, 0.001)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 25.0, order.Items[0].Price)
	assert.Equal(t, 50.0, order.Items[0].Total)
}

func TestCreate_SnapshotsCustomer(t *testing.T) {
	db := testDB(t)

	order, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)
	assert.Equal(t, "Dana", order.CustomerName)
	assert.Equal(t, "dana@acme.test", order.CustomerEmail)

	// The snapshot survives later edits to the customer record
	require.NoError(t, db.Model(&models.Customer{}).Where("id = ?", customerID).
		Updates(map[string]interface{}{"name": "Renamed", "email": "new@acme.test"}).Error)

	reloaded, err := ByID(db, memberID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", reloaded.CustomerName)
	assert.Equal(t, "dana@acme.test", reloaded.CustomerEmail)
}

func TestCreate_InsufficientStockIsAtomic(t *testing.T) {
	db := testDB(t)

	_, err := Create(db, memberID, productOrderInput(20))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")

	// Nothing persisted: no order, no items, no ledger, stock unchanged
	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.StockMovement{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, 10, stockQty(t, db))
}

func TestCreate_EmptyOrderRejected(t *testing.T) {
	db := testDB(t)

	_, err := Create(db, memberID, CreateInput{ProjectID: projectID, CustomerID: customerID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one")
}

func TestCreate_UnknownCustomer(t *testing.T) {
	db := testDB(t)

	input := productOrderInput(1)
	input.CustomerID = 42
	_, err := Create(db, memberID, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer 42 not found")
}

func TestCreate_RequiresMembership(t *testing.T) {
	db := testDB(t)

	_, err := Create(db, strangerID, productOrderInput(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a member")
}

func TestOrderNumbers_SequentialPerProject(t *testing.T) {
	db := testDB(t)

	// Second project with its own members and data
	require.NoError(t, db.Create(&models.Project{ID: 2, Name: "Beta"}).Error)
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: 2, UserID: memberID, Role: models.RoleMember}).Error)
	require.NoError(t, db.Create(&models.Customer{ID: 2, ProjectID: 2, Name: "Eli", Email: "eli@beta.test"}).Error)
	require.NoError(t, db.Create(&models.Service{ID: 2, ProjectID: 2, Name: "Audit", Price: 10, Active: true}).Error)

	first, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)
	second, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)
	assert.Equal(t, "o001", first.OrderNumber)
	assert.Equal(t, "o002", second.OrderNumber)

	other, err := Create(db, memberID, CreateInput{
		ProjectID: 2, CustomerID: 2,
		Services: []ServiceInput{{ServiceID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "o001", other.OrderNumber)
}

func TestUpdate_CancelRestoresStock(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)
	require.Equal(t, 6, stockQty(t, db))

	updated, err := Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, 10, stockQty(t, db))

	list := ledger(t, db)
	require.Len(t, list, 2)
	assert.Equal(t, models.MovementOrderCancelled, list[1].MovementType)
	assert.Equal(t, 4, list[1].Quantity)
	assert.Equal(t, 6, list[1].PreviousStock)
	assert.Equal(t, 10, list[1].NewStock)
}

func TestUpdate_ReinstateDecrementsAgain(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)

	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusCancelled)})
	require.NoError(t, err)
	require.Equal(t, 10, stockQty(t, db))

	updated, err := Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusPending)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Equal(t, 6, stockQty(t, db))

	list := ledger(t, db)
	require.Len(t, list, 3)
	assert.Equal(t, models.MovementOrderCreate, list[2].MovementType)
	assert.Equal(t, -4, list[2].Quantity)
}

func TestUpdate_ReinstateFailsWithoutStock(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)
	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusCancelled)})
	require.NoError(t, err)

	// Someone else takes the stock while the order sits cancelled
	require.NoError(t, db.Model(&models.WarehouseStock{}).
		Where("product_id = ? AND warehouse_id = ?", productID, whID).
		Update("quantity", 2).Error)

	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusNew)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")

	// Rolled back: still cancelled, stock untouched
	reloaded, err := ByID(db, adminID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, reloaded.Status)
	assert.Equal(t, 2, stockQty(t, db))
}

func TestUpdate_CancelDeliveredFails(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)
	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusDelivered)})
	require.NoError(t, err)

	ledgerBefore := len(ledger(t, db))
	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusCancelled)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot cancel a delivered order")

	// Stock and ledger untouched
	assert.Equal(t, 6, stockQty(t, db))
	assert.Len(t, ledger(t, db), ledgerBefore)
}

func TestUpdate_PlainStatusChangeHasNoStockEffects(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)

	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusShipping)})
	require.NoError(t, err)
	assert.Equal(t, 6, stockQty(t, db))
	assert.Len(t, ledger(t, db), 1)
}

func TestUpdate_RequiresAdmin(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)

	_, err = Update(db, memberID, order.ID, UpdateInput{Status: strPtr(models.StatusPending)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin role")
}

func TestUpdate_CustomerChangeResnapshots(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.Customer{ID: 2, ProjectID: projectID, Name: "Eli", Email: "eli@acme.test"}).Error)
	order, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)

	newCustomer := uint(2)
	updated, err := Update(db, adminID, order.ID, UpdateInput{CustomerID: &newCustomer})
	require.NoError(t, err)
	assert.Equal(t, "Eli", updated.CustomerName)
	assert.Equal(t, "eli@acme.test", updated.CustomerEmail)
}

func TestUpdate_CustomerOutsideProjectRejected(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&models.Project{ID: 2, Name: "Beta"}).Error)
	require.NoError(t, db.Create(&models.Customer{ID: 2, ProjectID: 2, Name: "Eli", Email: "eli@beta.test"}).Error)
	order, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)

	outsider := uint(2)
	_, err = Update(db, adminID, order.ID, UpdateInput{CustomerID: &outsider})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer 2 not found")
}

func TestUpdate_TaxChangeRecomputesTotal(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(2)) // 50, no tax
	require.NoError(t, err)
	require.InDelta(t, 50, order.TotalAmount, 0.001)

	tax := 10.0
	updated, err := Update(db, adminID, order.ID, UpdateInput{TaxPercentage: &tax})
	require.NoError(t, err)
	assert.InDelta(t, 55, updated.TotalAmount, 0.001)
}

func TestDelete_RestoresLiveStock(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)
	require.Equal(t, 6, stockQty(t, db))

	require.NoError(t, Delete(db, adminID, order.ID))
	assert.Equal(t, 10, stockQty(t, db))

	list := ledger(t, db)
	require.Len(t, list, 2)
	assert.Equal(t, models.MovementOrderDelete, list[1].MovementType)
	assert.Equal(t, 4, list[1].Quantity)

	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDelete_CancelledOrderDoesNotRestoreTwice(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)
	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusCancelled)})
	require.NoError(t, err)
	require.Equal(t, 10, stockQty(t, db))

	require.NoError(t, Delete(db, adminID, order.ID))

	// Already restored at cancellation; no ORDER_DELETE entry
	assert.Equal(t, 10, stockQty(t, db))
	list := ledger(t, db)
	require.Len(t, list, 2)
	assert.Equal(t, models.MovementOrderCancelled, list[1].MovementType)
}

func TestDelete_RequiresAdmin(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)

	err = Delete(db, memberID, order.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin role")
}

func TestList_Filters(t *testing.T) {
	db := testDB(t)

	_, err := Create(db, memberID, productOrderInput(1))
	require.NoError(t, err)
	second, err := Create(db, memberID, CreateInput{
		ProjectID: projectID, CustomerID: customerID,
		Services: []ServiceInput{{ServiceID: serviceID, Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = Update(db, adminID, second.ID, UpdateInput{Status: strPtr(models.StatusShipping)})
	require.NoError(t, err)

	all, total, err := List(db, memberID, ListFilter{ProjectID: projectID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	shipped, total, err := List(db, memberID, ListFilter{ProjectID: projectID, Status: models.StatusShipping})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, shipped, 1)
	assert.Equal(t, second.ID, shipped[0].ID)

	services, _, err := List(db, memberID, ListFilter{ProjectID: projectID, Type: models.TypeService})
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, second.ID, services[0].ID)

	min := 50.0
	big, _, err := List(db, memberID, ListFilter{ProjectID: projectID, MinAmount: &min})
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, second.ID, big[0].ID) // 2 * 40 = 80

	multi, _, err := List(db, memberID, ListFilter{
		ProjectID: projectID,
		Statuses:  []string{models.StatusNew, models.StatusShipping},
	})
	require.NoError(t, err)
	assert.Len(t, multi, 2)

	byNumber, _, err := List(db, memberID, ListFilter{ProjectID: projectID, Search: "o002"})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, second.ID, byNumber[0].ID)
}

func TestCreateCancelReinstateRoundTrip(t *testing.T) {
	db := testDB(t)
	order, err := Create(db, memberID, productOrderInput(4))
	require.NoError(t, err)
	require.Equal(t, 6, stockQty(t, db))

	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusCancelled)})
	require.NoError(t, err)
	require.Equal(t, 10, stockQty(t, db))

	_, err = Update(db, adminID, order.ID, UpdateInput{Status: strPtr(models.StatusNew)})
	require.NoError(t, err)
	require.Equal(t, 6, stockQty(t, db))

	// The ledger nets out to the live decrement
	var sum int
	require.NoError(t, db.Model(&models.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error)
	assert.Equal(t, -4, sum)
}
