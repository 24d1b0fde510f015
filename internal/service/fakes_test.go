package service

import (
	"context"
	"sync"
	"time"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/cart"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/order"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/review"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

// fakeProductRepo 内存实现，扣减与真实仓储一样是条件更新语义
type fakeProductRepo struct {
	mu       sync.Mutex
	seq      int64
	products map[int64]*product.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int64]*product.Product)}
}

func (r *fakeProductRepo) put(p *product.Product) *product.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		r.seq++
		p.ID = r.seq
	}
	r.products[p.ID] = p
	return p
}

func copyProduct(p *product.Product) *product.Product {
	cp := *p
	cp.Variants = make([]product.Variant, len(p.Variants))
	copy(cp.Variants, p.Variants)
	return &cp
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, errs.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (r *fakeProductRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*product.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, copyProduct(p))
	}
	return out, nil
}

func (r *fakeProductRepo) ListPublished(ctx context.Context) ([]*product.Product, error) {
	all, _ := r.ListAll(ctx)
	out := all[:0]
	for _, p := range all {
		if p.Published() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	all, _ := r.ListPublished(ctx)
	if category == "" || category == "all" {
		return all, nil
	}
	out := all[:0]
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.put(p)
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return errs.ErrProductNotFound
	}
	r.products[p.ID] = copyProduct(p)
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) DecrementVariantStock(ctx context.Context, productID int64, variant string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, errs.Validation("quantity must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return 0, errs.ErrVariantNotFound
	}
	v := p.FindVariant(variant)
	if v == nil {
		return 0, errs.ErrVariantNotFound
	}
	if v.Stock < qty {
		return v.Stock, errs.ErrInsufficientStock
	}
	v.Stock -= qty
	return v.Stock, nil
}

func (r *fakeProductRepo) IncrementVariantStock(ctx context.Context, productID int64, variant string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, errs.Validation("quantity must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return 0, errs.ErrVariantNotFound
	}
	v := p.FindVariant(variant)
	if v == nil {
		return 0, errs.ErrVariantNotFound
	}
	v.Stock += qty
	return v.Stock, nil
}

func (r *fakeProductRepo) RefreshStockFlags(ctx context.Context, productID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return false, errs.ErrProductNotFound
	}
	for i := range p.Variants {
		p.Variants[i].InStock = p.Variants[i].Stock > 0
	}
	if len(p.Variants) > 0 {
		p.InStock = p.AnyVariantInStock()
	}
	return p.InStock, nil
}

func (r *fakeProductRepo) UpdateRating(ctx context.Context, productID int64, rating float64, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return errs.ErrProductNotFound
	}
	p.Rating = rating
	p.ReviewCount = count
	return nil
}

// fakeCartRepo 内存购物车仓储，记录写回次数以验证对账幂等
type fakeCartRepo struct {
	mu           sync.Mutex
	seq          int64
	itemSeq      int64
	carts        map[int64]*cart.Cart // key: userID
	replaceCalls int
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[int64]*cart.Cart)}
}

func copyCart(c *cart.Cart) *cart.Cart {
	cp := *c
	cp.Items = make([]cart.Item, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

func (r *fakeCartRepo) GetByUser(ctx context.Context, userID int64) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, errs.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (r *fakeCartRepo) GetOrCreate(ctx context.Context, userID int64) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[userID]; ok {
		return copyCart(c), nil
	}
	r.seq++
	c := &cart.Cart{ID: r.seq, UserID: userID}
	r.carts[userID] = c
	return copyCart(c), nil
}

func (r *fakeCartRepo) byCartID(cartID int64) *cart.Cart {
	for _, c := range r.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (r *fakeCartRepo) AddItem(ctx context.Context, cartID int64, item *cart.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.byCartID(cartID)
	if c == nil {
		return errs.ErrCartNotFound
	}
	r.itemSeq++
	item.ID = r.itemSeq
	item.CartID = cartID
	c.Items = append(c.Items, *item)
	return nil
}

func (r *fakeCartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.byCartID(cartID)
	if c == nil {
		return errs.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return errs.NotFound("cart item not found")
}

func (r *fakeCartRepo) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.byCartID(cartID)
	if c == nil {
		return errs.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return errs.NotFound("cart item not found")
}

func (r *fakeCartRepo) ReplaceItems(ctx context.Context, cartID int64, items []cart.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceCalls++
	c := r.byCartID(cartID)
	if c == nil {
		return errs.ErrCartNotFound
	}
	c.Items = make([]cart.Item, len(items))
	for i := range items {
		r.itemSeq++
		items[i].ID = r.itemSeq
		items[i].CartID = cartID
		c.Items[i] = items[i]
	}
	return nil
}

func (r *fakeCartRepo) Clear(ctx context.Context, cartID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.byCartID(cartID)
	if c == nil {
		return errs.ErrCartNotFound
	}
	c.Items = nil
	return nil
}

// fakeOrderRepo 内存订单仓储，订单号唯一性与真实唯一索引同语义
type fakeOrderRepo struct {
	mu     sync.Mutex
	seq    int64
	orders []*order.Order
	// failCreates 前 N 次 Create 强制返回订单号冲突，模拟并发抢号
	failCreates int
	// nowFn 可注入的时钟，控制 CreatedAt 以便测试按日计数
	nowFn func() time.Time
}

func newFakeOrderRepo() *fakeOrderRepo { return &fakeOrderRepo{} }

func copyOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = make([]order.Item, len(o.Items))
	copy(cp.Items, o.Items)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreates > 0 {
		r.failCreates--
		return errs.ErrDuplicateOrderNumber
	}
	for _, existing := range r.orders {
		if existing.OrderNumber == o.OrderNumber {
			return errs.ErrDuplicateOrderNumber
		}
	}
	r.seq++
	o.ID = r.seq
	if o.CreatedAt.IsZero() {
		if r.nowFn != nil {
			o.CreatedAt = r.nowFn()
		} else {
			o.CreatedAt = time.Now()
		}
	}
	r.orders = append(r.orders, copyOrder(o))
	return nil
}

func (r *fakeOrderRepo) byID(id int64) *order.Order {
	for _, o := range r.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.byID(id)
	if o == nil {
		return nil, errs.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNumber == number {
			return copyOrder(o), nil
		}
	}
	return nil, errs.ErrOrderNotFound
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for i := len(r.orders) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyOrder(r.orders[i]))
	}
	return out, nil
}

func (r *fakeOrderRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.byID(id)
	if o == nil {
		return errs.ErrOrderNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(string)
		case "payment_status":
			o.PaymentStatus = v.(string)
		case "tracking_number":
			o.TrackingNumber = v.(string)
		case "notes":
			o.Notes = v.(string)
		}
	}
	return nil
}

func (r *fakeOrderRepo) SetDeliveredAt(ctx context.Context, id int64, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.byID(id)
	if o == nil {
		return errs.ErrOrderNotFound
	}
	if o.DeliveredAt == nil {
		o.DeliveredAt = &t
	}
	return nil
}

// fakeReviewRepo 内存评论仓储
type fakeReviewRepo struct {
	mu      sync.Mutex
	seq     int64
	reviews map[int64]*review.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[int64]*review.Review)}
}

func (r *fakeReviewRepo) GetByID(ctx context.Context, id int64) (*review.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, errs.ErrReviewNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r *fakeReviewRepo) ListByProduct(ctx context.Context, productID int64) ([]*review.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*review.Review
	for _, rv := range r.reviews {
		if rv.ProductID == productID {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) Create(ctx context.Context, rv *review.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.ProductID == rv.ProductID && existing.UserID == rv.UserID {
			return errs.Conflict("review already exists for this product")
		}
	}
	r.seq++
	rv.ID = r.seq
	cp := *rv
	r.reviews[rv.ID] = &cp
	return nil
}

func (r *fakeReviewRepo) Update(ctx context.Context, rv *review.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[rv.ID]; !ok {
		return errs.ErrReviewNotFound
	}
	cp := *rv
	r.reviews[rv.ID] = &cp
	return nil
}

func (r *fakeReviewRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return errs.ErrReviewNotFound
	}
	delete(r.reviews, id)
	return nil
}

// recordingNotifier 记录收到的通知，可配置为失败
type recordingNotifier struct {
	mu   sync.Mutex
	sent []*StatusNotification
	err  error
}

func (n *recordingNotifier) OrderStatusChanged(ctx context.Context, msg *StatusNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}
