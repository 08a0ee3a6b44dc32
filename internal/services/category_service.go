package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/models"
	"caudal/internal/pagination"
)

// categoryService handles category-related business logic, including the
// parent/child tree.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category, optionally under a parent. The
// parent must exist and share the category's type.
func (s *categoryService) CreateCategory(
	name string,
	categoryType models.CategoryType,
	description, icon, color string,
	parentID *string,
) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("name = ? AND type = ?", name, categoryType).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	if parentID != nil {
		parent, err := s.GetCategoryByID(*parentID)
		if err != nil {
			return nil, err
		}
		if parent.Type != categoryType {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "parent category must have the same type")
		}
	}

	category := &models.Category{
		Name:        name,
		Type:        categoryType,
		Description: description,
		Icon:        icon,
		Color:       color,
		ParentID:    parentID,
		IsActive:    true,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetCategories retrieves a paginated list of categories. With rootOnly set,
// only top-level categories are returned, each preloaded with its children.
func (s *categoryService) GetCategories(
	page pagination.PageRequest,
	categoryType *models.CategoryType,
	rootOnly bool,
) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	base := s.db.Model(&models.Category{})
	if categoryType != nil {
		base = base.Where("type = ?", *categoryType)
	}
	if rootOnly {
		base = base.Where("parent_id IS NULL")
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	query := base.Scopes(pagination.Paginate(page)).Order("name ASC")
	if rootOnly {
		query = query.Preload("Children")
	}

	var categories []models.Category
	if err := query.Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID.
func (s *categoryService) GetCategoryByID(categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// GetCategoryPath returns the chain of ancestors from the root down to the
// given category, inclusive.
func (s *categoryService) GetCategoryPath(categoryID string) ([]models.Category, error) {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return nil, err
	}

	path := []models.Category{*category}
	current := category
	for current.ParentID != nil {
		parent, err := s.GetCategoryByID(*current.ParentID)
		if err != nil {
			return nil, err
		}
		path = append([]models.Category{*parent}, path...)
		current = parent
	}
	return path, nil
}

// UpdateCategory updates an existing category. Reparenting is rejected when
// it would make the category its own ancestor.
func (s *categoryService) UpdateCategory(
	categoryID string,
	name, description, icon, color string,
	parentID *string,
) (*models.Category, error) {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" && name != category.Name {
		var count int64
		if err := s.db.Model(&models.Category{}).
			Where("name = ? AND type = ? AND id <> ?", name, category.Type, categoryID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.ErrDuplicateCategory
		}
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}
	if parentID != nil {
		if *parentID == "" {
			updates["parent_id"] = nil
		} else {
			if err := s.checkNoCycle(categoryID, *parentID); err != nil {
				return nil, err
			}
			parent, err := s.GetCategoryByID(*parentID)
			if err != nil {
				return nil, err
			}
			if parent.Type != category.Type {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "parent category must have the same type")
			}
			updates["parent_id"] = *parentID
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", category.ID).First(category).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// checkNoCycle walks up from the proposed parent and fails if it reaches the
// category being reparented.
func (s *categoryService) checkNoCycle(categoryID, newParentID string) error {
	currentID := newParentID
	for currentID != "" {
		if currentID == categoryID {
			return apperrors.ErrCategoryCycle
		}
		parent, err := s.GetCategoryByID(currentID)
		if err != nil {
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		currentID = *parent.ParentID
	}
	return nil
}

// DeleteCategory soft-deletes a category. Categories with children cannot be
// deleted; reparent or delete the children first.
func (s *categoryService) DeleteCategory(categoryID string) error {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return err
	}

	var childCount int64
	if err := s.db.Model(&models.Category{}).
		Where("parent_id = ?", categoryID).
		Count(&childCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if childCount > 0 {
		return apperrors.ErrCategoryHasChildren
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
