package model

import (
	"fmt"
	"strings"
	"time"
)

// CategoryType distinguishes the built-in categories from ones a user created.
type CategoryType string

const (
	// CategoryTypeDefault is a system category visible to every user.
	CategoryTypeDefault CategoryType = "default"
	// CategoryTypeCustom is a category owned by a single user.
	CategoryTypeCustom CategoryType = "custom"
)

// OthersCategoryID is the catch-all category the classifier falls back to.
const OthersCategoryID = 15

// Category is a classification label a transaction can carry.
type Category struct {
	CreatedAt   time.Time    `json:"createdAt"`
	Name        string       `json:"categoryName"`
	Type        CategoryType `json:"categoryType"`
	Icon        string       `json:"icon,omitempty"`
	Color       string       `json:"color,omitempty"`
	Description string       `json:"description,omitempty"`
	ID          int          `json:"categoryId"`
	UserID      int64        `json:"-"`
}

// IsDefault reports whether the category is a built-in one.
func (c Category) IsDefault() bool {
	return c.Type == CategoryTypeDefault
}

// VisibleTo reports whether userID may assign this category.
func (c Category) VisibleTo(userID int64) bool {
	return c.IsDefault() || c.UserID == userID
}

// Validate checks that the category is well formed.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	switch c.Type {
	case CategoryTypeDefault:
	case CategoryTypeCustom:
		if c.UserID <= 0 {
			return fmt.Errorf("custom category %q must have an owner", c.Name)
		}
	default:
		return fmt.Errorf("invalid category type %q", c.Type)
	}
	if c.Color != "" && !strings.HasPrefix(c.Color, "#") {
		return fmt.Errorf("color must be a hex value like #aabbcc, got %q", c.Color)
	}
	return nil
}

// DefaultCategories returns the built-in category set in seed order. The IDs
// are stable and shared with the classification service.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Food & Dining", Icon: "🍔", Color: "#FF6B6B", Type: CategoryTypeDefault},
		{ID: 2, Name: "Groceries", Icon: "🛒", Color: "#4ECDC4", Type: CategoryTypeDefault},
		{ID: 3, Name: "Transportation", Icon: "🚗", Color: "#45B7D1", Type: CategoryTypeDefault},
		{ID: 4, Name: "Shopping", Icon: "🛍️", Color: "#F7B731", Type: CategoryTypeDefault},
		{ID: 5, Name: "Entertainment", Icon: "🎬", Color: "#A55EEA", Type: CategoryTypeDefault},
		{ID: 6, Name: "Healthcare", Icon: "🏥", Color: "#26DE81", Type: CategoryTypeDefault},
		{ID: 7, Name: "Bills & Utilities", Icon: "💡", Color: "#FD9644", Type: CategoryTypeDefault},
		{ID: 8, Name: "Travel", Icon: "✈️", Color: "#2BCBBA", Type: CategoryTypeDefault},
		{ID: 9, Name: "Education", Icon: "📚", Color: "#4B7BEC", Type: CategoryTypeDefault},
		{ID: 10, Name: "Investments", Icon: "📈", Color: "#20BF6B", Type: CategoryTypeDefault},
		{ID: 11, Name: "Insurance", Icon: "🛡️", Color: "#778CA3", Type: CategoryTypeDefault},
		{ID: 12, Name: "Subscriptions", Icon: "🔁", Color: "#EB3B5A", Type: CategoryTypeDefault},
		{ID: 13, Name: "Fuel", Icon: "⛽", Color: "#FA8231", Type: CategoryTypeDefault},
		{ID: 14, Name: "Gifts & Donations", Icon: "🎁", Color: "#F368E0", Type: CategoryTypeDefault},
		{ID: OthersCategoryID, Name: "Others", Icon: "📦", Color: "#A5B1C2", Type: CategoryTypeDefault},
	}
}
