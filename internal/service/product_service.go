package service

import (
	"context"
	"strings"

	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/product"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

// ProductService 商品目录服务（后台维护 + 前台查询）
type ProductService struct {
	repo product.Repository
}

// NewProductService 创建商品服务
func NewProductService(repo product.Repository) *ProductService {
	return &ProductService{repo: repo}
}

// validate 落库前的显式校验，替代任何靠持久层钩子的隐式校验
func (s *ProductService) validate(p *product.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.Validation("product name is required")
	}
	if strings.TrimSpace(p.Price) == "" {
		return errs.Validation("product price is required")
	}
	if p.Status == "" {
		p.Status = product.StatusDraft
	}
	if p.Status != product.StatusDraft && p.Status != product.StatusPublished {
		return errs.Validationf("invalid status %q", p.Status)
	}
	seen := make(map[string]struct{}, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		if strings.TrimSpace(v.Name) == "" {
			return errs.Validation("variant name is required")
		}
		if v.Stock < 0 {
			return errs.Validationf("variant %q stock must not be negative", v.Name)
		}
		if _, dup := seen[v.Name]; dup {
			return errs.Validationf("duplicate variant %q", v.Name)
		}
		seen[v.Name] = struct{}{}
		v.InStock = v.Stock > 0
	}
	// 聚合可售标记：有规格时由规格推导，无规格时沿用传入的布尔值
	if len(p.Variants) > 0 {
		p.InStock = p.AnyVariantInStock()
	}
	return nil
}

func (s *ProductService) ListPublished(ctx context.Context) ([]*product.Product, error) {
	return s.repo.ListPublished(ctx)
}

func (s *ProductService) ListAll(ctx context.Context) ([]*product.Product, error) {
	return s.repo.ListAll(ctx)
}

func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	return s.repo.ListByCategory(ctx, category)
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Create(ctx context.Context, p *product.Product) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *ProductService) Update(ctx context.Context, p *product.Product) error {
	if err := s.validate(p); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
