package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

func seedVariantProduct(repo *fakeProductRepo, stock int64) *product.Product {
	return repo.put(&product.Product{
		Name:    "T-Shirt",
		Price:   "$19.90",
		Status:  product.StatusPublished,
		InStock: stock > 0,
		Variants: []product.Variant{
			{Name: "M", Stock: stock, InStock: stock > 0},
		},
	})
}

// 并发扣减下库存绝不超卖：50 件库存、100 个并发请求，恰好成功 50 次
func TestInventoryDecrementConcurrentNoOversell(t *testing.T) {
	repo := newFakeProductRepo()
	p := seedVariantProduct(repo, 50)
	svc := NewInventoryService(repo, nil, 30)

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Decrement(context.Background(), p.ID, "M", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errs.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	assert.Equal(t, 50, insufficient)

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Variants[0].Stock)
	assert.False(t, got.Variants[0].InStock)
	assert.False(t, got.InStock)
}

func TestInventoryDecrementInsufficientKeepsStock(t *testing.T) {
	repo := newFakeProductRepo()
	p := seedVariantProduct(repo, 2)
	svc := NewInventoryService(repo, nil, 30)

	_, err := svc.Decrement(context.Background(), p.ID, "M", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Variants[0].Stock)
	assert.True(t, got.InStock)
}

func TestInventoryDecrementFlipsFlags(t *testing.T) {
	repo := newFakeProductRepo()
	p := seedVariantProduct(repo, 3)
	svc := NewInventoryService(repo, nil, 30)

	res, err := svc.Decrement(context.Background(), p.ID, "M", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Remaining)
	assert.False(t, res.ProductInStock)

	res, err = svc.Restock(context.Background(), p.ID, "M", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Remaining)
	assert.True(t, res.ProductInStock)
}

func TestInventoryDecrementValidation(t *testing.T) {
	repo := newFakeProductRepo()
	p := seedVariantProduct(repo, 5)
	svc := NewInventoryService(repo, nil, 30)

	_, err := svc.Decrement(context.Background(), p.ID, "M", 0)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = svc.Decrement(context.Background(), p.ID, "", 1)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = svc.Decrement(context.Background(), p.ID, "XXL", 1)
	assert.True(t, errors.Is(err, errs.ErrVariantNotFound))
}

// 只有部分规格售罄时聚合标记保持可售
func TestInventoryAggregateFlagAcrossVariants(t *testing.T) {
	repo := newFakeProductRepo()
	p := repo.put(&product.Product{
		Name:    "Hoodie",
		Price:   "$49.00",
		Status:  product.StatusPublished,
		InStock: true,
		Variants: []product.Variant{
			{Name: "S", Stock: 1, InStock: true},
			{Name: "L", Stock: 4, InStock: true},
		},
	})
	svc := NewInventoryService(repo, nil, 30)

	res, err := svc.Decrement(context.Background(), p.ID, "S", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Remaining)
	assert.True(t, res.ProductInStock)

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, got.Variants[0].InStock)
	assert.True(t, got.Variants[1].InStock)
	assert.True(t, got.InStock)
}

func TestCheckAvailability(t *testing.T) {
	repo := newFakeProductRepo()
	p := seedVariantProduct(repo, 7)
	boolProd := repo.put(&product.Product{
		Name:    "Gift Card",
		Price:   "$25.00",
		Status:  product.StatusPublished,
		InStock: true,
	})
	svc := NewInventoryService(repo, nil, 30)

	av, err := svc.CheckAvailability(context.Background(), p.ID, "M")
	require.NoError(t, err)
	assert.Equal(t, int64(7), av.Available)
	assert.True(t, av.IsInStock)

	// 布尔库存商品没有计数，Available 返回 -1
	av, err = svc.CheckAvailability(context.Background(), boolProd.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), av.Available)
	assert.True(t, av.IsInStock)

	_, err = svc.CheckAvailability(context.Background(), boolProd.ID, "M")
	assert.True(t, errors.Is(err, errs.ErrVariantNotFound))

	_, err = svc.CheckAvailability(context.Background(), 9999, "")
	assert.True(t, errors.Is(err, errs.ErrProductNotFound))
}
