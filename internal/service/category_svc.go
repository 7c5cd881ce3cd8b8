package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
)

// ErrCategoryHasChildren 仍有子分类的分类不能删除
var ErrCategoryHasChildren = errors.New("category still has child categories")

// CategoryInput 分类创建/更新参数
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"max=120"`
	Description string `json:"description" validate:"max=2000"`
	ParentID    *int64 `json:"parent_id"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int    `json:"sort_order" validate:"gte=0"`
}

// CategoryService 分类管理
type CategoryService struct {
	repo  repository.CategoryRepository
	cache CategoryCache
}

// NewCategoryService 创建分类服务，cache 为 nil 时不缓存
func NewCategoryService(repo repository.CategoryRepository, cache CategoryCache) *CategoryService {
	if cache == nil {
		cache = NewNopCategoryCache()
	}
	return &CategoryService{repo: repo, cache: cache}
}

// ListActive 启用的分类，优先读缓存
func (s *CategoryService) ListActive(ctx context.Context) ([]model.Category, error) {
	if categories, ok := s.cache.GetActive(ctx); ok {
		return categories, nil
	}

	categories, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	s.cache.SetActive(ctx, categories)
	return categories, nil
}

// ListAll 全部分类（管理端）
func (s *CategoryService) ListAll(ctx context.Context) ([]model.Category, error) {
	return s.repo.List(ctx, false)
}

// Create 创建分类，未填写 slug 时由名称生成
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if err := s.normalize(ctx, 0, &in); err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		ParentID:    in.ParentID,
		IsActive:    in.IsActive == nil || *in.IsActive,
		SortOrder:   in.SortOrder,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("slug", "is already taken")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.cache.Invalidate(ctx)
	zap.L().Info("category created", zap.Int64("category_id", category.ID), zap.String("slug", category.Slug))
	return category, nil
}

// Update 更新分类
func (s *CategoryService) Update(ctx context.Context, id int64, in CategoryInput) (*model.Category, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.normalize(ctx, id, &in); err != nil {
		return nil, err
	}

	isActive := existing.IsActive
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	err = s.repo.UpdateFields(ctx, id, map[string]interface{}{
		"name":        in.Name,
		"slug":        in.Slug,
		"description": in.Description,
		"parent_id":   in.ParentID,
		"is_active":   isActive,
		"sort_order":  in.SortOrder,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("slug", "is already taken")
		}
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.cache.Invalidate(ctx)
	return s.GetByID(ctx, id)
}

// Delete 删除分类，仍有商品或子分类时拒绝
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	products, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 {
		return fmt.Errorf("%w (%d products)", ErrCategoryInUse, products)
	}

	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrCategoryHasChildren
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// GetByID 获取分类
func (s *CategoryService) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return category, err
}

// normalize 校验入参、生成 slug、检查父分类
func (s *CategoryService) normalize(ctx context.Context, id int64, in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := validateInput(*in); err != nil {
		return err
	}

	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
		if in.Slug == "" {
			return NewValidationError("slug", "could not be derived from name")
		}
	} else if Slugify(in.Slug) != in.Slug {
		return NewValidationError("slug", "must contain only lowercase letters, digits and dashes")
	}

	if in.ParentID != nil {
		if id > 0 && *in.ParentID == id {
			return NewValidationError("parent_id", "cannot be the category itself")
		}
		if _, err := s.GetByID(ctx, *in.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return NewValidationError("parent_id", "does not exist")
			}
			return err
		}
	}
	return nil
}

// Slugify 小写，非字母数字替换为 "-"，合并连续的 "-"
func Slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
