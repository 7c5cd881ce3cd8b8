package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace_admin/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(&model.Vendor{}, &model.Category{}, &model.Product{}, &model.Order{}, &model.OrderLineItem{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

// ==================== Vendor ====================

func TestVendorRepository_CreateAndGet(t *testing.T) {
	repo := NewVendorRepository(setupTestDB(t))
	ctx := context.Background()

	v := &model.Vendor{
		UserID:          "user-1",
		BusinessName:    "Acme",
		ContactEmail:    "a@acme.test",
		Status:          model.VendorStatusPending,
		CommissionRate:  model.DefaultCommissionRate,
		BusinessAddress: map[string]interface{}{"city": "Berlin"},
	}
	require.NoError(t, repo.Create(ctx, v))

	found, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, v.ID, found.ID)
	assert.Equal(t, "Berlin", found.BusinessAddress["city"])

	_, err = repo.GetByUserID(ctx, "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	dup := &model.Vendor{UserID: "user-1", BusinessName: "Dup", ContactEmail: "d@acme.test"}
	assert.True(t, errors.Is(repo.Create(ctx, dup), gorm.ErrDuplicatedKey))
}

func TestVendorRepository_ListAndUpdateIfStatus(t *testing.T) {
	repo := NewVendorRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		status := model.VendorStatusPending
		if i == 2 {
			status = model.VendorStatusApproved
		}
		require.NoError(t, repo.Create(ctx, &model.Vendor{
			UserID:       fmt.Sprintf("u-%d", i),
			BusinessName: fmt.Sprintf("Shop %d", i),
			ContactEmail: "x@test",
			Status:       status,
		}))
	}

	list, total, err := repo.List(ctx, VendorFilter{Status: model.VendorStatusPending, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)

	ok, err := repo.UpdateIfStatus(ctx, list[0].ID, model.VendorStatusPending, map[string]interface{}{"status": model.VendorStatusApproved})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateIfStatus(ctx, list[0].ID, model.VendorStatusPending, map[string]interface{}{"status": model.VendorStatusRejected})
	require.NoError(t, err)
	assert.False(t, ok, "状态已变化，不应再次命中")
}

// ==================== Category ====================

func TestCategoryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Category{Name: "Toys", Slug: "toys", SortOrder: 2, IsActive: true}))
	require.NoError(t, repo.Create(ctx, &model.Category{Name: "Books", Slug: "books", SortOrder: 1, IsActive: true}))
	hidden := &model.Category{Name: "Hidden", Slug: "hidden", IsActive: true}
	require.NoError(t, repo.Create(ctx, hidden))
	require.NoError(t, repo.UpdateFields(ctx, hidden.ID, map[string]interface{}{"is_active": false}))

	err := repo.Create(ctx, &model.Category{Name: "Toys 2", Slug: "toys"})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "books", active[0].Slug)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	books, err := repo.GetBySlug(ctx, "books")
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Product{VendorID: 1, CategoryID: &books.ID, Code: "c-1", Name: "Novel"}).Error)

	count, err := repo.CountProducts(ctx, books.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Delete(ctx, hidden.ID))
	_, err = repo.GetByID(ctx, hidden.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

// ==================== Product ====================

func TestProductRepository_CreateBatchIsAtomic(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	ctx := context.Background()

	batch := make([]*model.Product, 0, 150)
	for i := 0; i < 150; i++ {
		batch = append(batch, &model.Product{VendorID: 1, Code: fmt.Sprintf("code-%03d", i), Name: "P"})
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))

	_, total, err := repo.List(ctx, ProductFilter{VendorID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)

	// 第二批中存在重复编码，整批回滚
	bad := []*model.Product{
		{VendorID: 2, Code: "fresh-1", Name: "A"},
		{VendorID: 2, Code: "code-000", Name: "B"},
	}
	err = repo.Transaction(ctx, func(txRepo ProductRepository) error {
		return txRepo.CreateBatch(ctx, bad)
	})
	assert.Error(t, err)

	_, total, err = repo.List(ctx, ProductFilter{VendorID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestProductRepository_ListFilters(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Product{VendorID: 1, Code: "a", Name: "Red Mug", Status: model.ProductStatusPending}))
	require.NoError(t, repo.Create(ctx, &model.Product{VendorID: 1, Code: "b", Name: "Blue Mug", Status: model.ProductStatusApproved}))
	require.NoError(t, repo.Create(ctx, &model.Product{VendorID: 2, Code: "c", Name: "Red Hat", Status: model.ProductStatusPending,
		Tags: []string{"hat", "red"}}))

	list, total, err := repo.List(ctx, ProductFilter{Status: model.ProductStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, _, err = repo.List(ctx, ProductFilter{Keyword: "Red", VendorID: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"hat", "red"}, []string(list[0].Tags))
}

func TestProductRepository_UpdateIfStatus(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	ctx := context.Background()

	p := &model.Product{VendorID: 1, Code: "a", Name: "Mug", Status: model.ProductStatusPending}
	require.NoError(t, repo.Create(ctx, p))

	ok, err := repo.UpdateIfStatus(ctx, p.ID, model.ProductStatusPending, map[string]interface{}{"status": model.ProductStatusApproved})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateIfStatus(ctx, p.ID, model.ProductStatusPending, map[string]interface{}{"status": model.ProductStatusRejected})
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusApproved, found.Status)
}

func TestProductRepository_Transaction(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.Transaction(ctx, func(txRepo ProductRepository) error {
		if err := txRepo.Create(ctx, &model.Product{VendorID: 1, Code: "tx-1", Name: "A"}); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	assert.Error(t, err)

	_, total, err := repo.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

// ==================== Order ====================

func seedOrder(t *testing.T, repo OrderRepository, number, status string, expiresAt *time.Time, items ...model.OrderLineItem) *model.Order {
	order := &model.Order{
		OrderNumber: number,
		Status:      status,
		PlacedAt:    time.Now(),
		ExpiresAt:   expiresAt,
		Items:       items,
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestOrderRepository_ListLineItemsPreloadsOrder(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	seedOrder(t, repo, "O-1", "canceled", nil,
		model.OrderLineItem{VendorID: 1, ProductName: "A", Quantity: 1},
		model.OrderLineItem{VendorID: 2, ProductName: "B", Quantity: 2},
	)
	seedOrder(t, repo, "O-2", model.OrderStatusPending, nil,
		model.OrderLineItem{VendorID: 1, ProductName: "C", FulfillmentStatus: strPtr(model.FulfillmentShipped)},
	)

	items, total, err := repo.ListLineItems(ctx, LineItemFilter{VendorID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	for _, item := range items {
		require.NotNil(t, item.Order)
	}

	statuses := map[string]string{}
	for _, item := range items {
		statuses[item.ProductName] = item.EffectiveStatus()
	}
	assert.Equal(t, "cancelled", statuses["A"])
	assert.Equal(t, "shipped", statuses["C"])
}

// 数据库侧筛选必须与 model.ResolveEffectiveStatus 逐行一致
func TestOrderRepository_EffectiveStatusFilterMatchesResolver(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	orderStatuses := []string{"pending", "canceled", "CANCELLED", " Expired ", "confirmed", "shipped"}
	fulfillments := []*string{nil, strPtr(""), strPtr("pending"), strPtr(" Shipped"), strPtr("bogus"),
		strPtr("cancelled"), strPtr("delivered"), strPtr("CONFIRMED"), strPtr("processing"), strPtr("expired")}

	want := map[string]map[int64]bool{}
	for i, orderStatus := range orderStatuses {
		items := make([]model.OrderLineItem, 0, len(fulfillments))
		for _, f := range fulfillments {
			items = append(items, model.OrderLineItem{VendorID: 1, ProductName: "P", FulfillmentStatus: f})
		}
		order := seedOrder(t, repo, fmt.Sprintf("O-%d", i), orderStatus, nil, items...)
		for _, item := range order.Items {
			status := model.ResolveEffectiveStatus(&orderStatus, item.FulfillmentStatus)
			if want[status] == nil {
				want[status] = map[int64]bool{}
			}
			want[status][item.ID] = true
		}
	}

	for _, status := range model.EffectiveStatuses {
		t.Run(status, func(t *testing.T) {
			items, total, err := repo.ListLineItems(ctx, LineItemFilter{Status: status, PageSize: 100})
			require.NoError(t, err)
			assert.Equal(t, int64(len(want[status])), total)

			got := map[int64]bool{}
			for _, item := range items {
				got[item.ID] = true
				assert.Equal(t, status, item.EffectiveStatus())
			}
			assert.Equal(t, len(want[status]), len(got))
			for id := range want[status] {
				assert.True(t, got[id], "订单项 %d 应属于 %s", id, status)
			}
		})
	}

	t.Run("分组计数", func(t *testing.T) {
		groups, err := repo.CountLineItemsByStatus(ctx, LineItemFilter{})
		require.NoError(t, err)

		counts := map[string]int64{}
		for _, g := range groups {
			counts[model.ResolveEffectiveStatus(g.OrderStatus, g.FulfillmentStatus)] += g.Count
		}
		for status, ids := range want {
			assert.Equal(t, int64(len(ids)), counts[status], status)
		}
	})
}

func TestOrderRepository_ListLineItemsPagination(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	items := make([]model.OrderLineItem, 0, 5)
	for i := 0; i < 5; i++ {
		items = append(items, model.OrderLineItem{VendorID: 1, ProductName: fmt.Sprintf("P%d", i)})
	}
	seedOrder(t, repo, "O-1", model.OrderStatusCancelled, nil, items...)
	seedOrder(t, repo, "O-2", model.OrderStatusPending, nil, model.OrderLineItem{VendorID: 1, ProductName: "X"})

	page, total, err := repo.ListLineItems(ctx, LineItemFilter{VendorID: 1, Status: model.OrderStatusCancelled, Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 1)
}

func TestOrderRepository_UpdateLineItem(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	order := seedOrder(t, repo, "O-1", model.OrderStatusConfirmed, nil,
		model.OrderLineItem{VendorID: 1, ProductName: "A"},
	)
	itemID := order.Items[0].ID

	require.NoError(t, repo.UpdateLineItemFields(ctx, itemID, map[string]interface{}{
		"fulfillment_status": model.FulfillmentShipped,
		"tracking_number":    "1Z999",
	}))

	item, err := repo.GetLineItem(ctx, itemID)
	require.NoError(t, err)
	require.NotNil(t, item.FulfillmentStatus)
	assert.Equal(t, model.FulfillmentShipped, *item.FulfillmentStatus)
	assert.Equal(t, "1Z999", item.TrackingNumber)
	assert.Equal(t, "O-1", item.Order.OrderNumber)
}

func TestOrderRepository_ExpirePending(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t))
	ctx := context.Background()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := seedOrder(t, repo, "O-1", model.OrderStatusPending, &past)
	notYet := seedOrder(t, repo, "O-2", model.OrderStatusPending, &future)
	noDeadline := seedOrder(t, repo, "O-3", model.OrderStatusPending, nil)
	shipped := seedOrder(t, repo, "O-4", model.OrderStatusShipped, &past)

	n, err := repo.ExpirePending(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for id, want := range map[int64]string{
		expired.ID:    model.OrderStatusExpired,
		notYet.ID:     model.OrderStatusPending,
		noDeadline.ID: model.OrderStatusPending,
		shipped.ID:    model.OrderStatusShipped,
	} {
		o, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, o.Status)
	}
}

func TestNormalizePage(t *testing.T) {
	page, size := normalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, size)

	_, size = normalizePage(2, 1000)
	assert.Equal(t, maxPageSize, size)
}
