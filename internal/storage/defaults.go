package storage

import (
	"context"
	"fmt"

	"insaat/internal/core"
)

var defaultCategories = []core.Category{
	{Name: "Materials", Color: "#3b82f6", Icon: "inventory_2"},
	{Name: "Labor", Color: "#10b981", Icon: "engineering"},
	{Name: "Vehicle Rental", Color: "#f59e0b", Icon: "local_shipping"},
	{Name: "Equipment", Color: "#8b5cf6", Icon: "handyman"},
	{Name: "Transport", Color: "#ef4444", Icon: "airport_shuttle"},
	{Name: "Fees and Taxes", Color: "#ec4899", Icon: "receipt_long"},
	{Name: "Other", Color: "#6b7280", Icon: "more_horiz"},
}

var defaultMaterialCategories = []core.MaterialCategory{
	{Name: "Steel", Color: "#607d8b", Icon: "build_circle"},
	{Name: "Cement", Color: "#9e9e9e", Icon: "foundation"},
	{Name: "Sand/Gravel", Color: "#d7ccc8", Icon: "landscape"},
	{Name: "Brick/Block", Color: "#ff7043", Icon: "view_module"},
	{Name: "Paint", Color: "#29b6f6", Icon: "format_paint"},
	{Name: "Hardware", Color: "#fdd835", Icon: "handyman"},
	{Name: "Electrical", Color: "#ffeb3b", Icon: "bolt"},
	{Name: "Plumbing", Color: "#42a5f5", Icon: "water_drop"},
	{Name: "Other", Color: "#78909c", Icon: "more"},
}

// EnsureDefaults seeds the starter category sets on first run. Collections
// the user already touched are left alone.
func (r *Repository) EnsureDefaults(ctx context.Context) error {
	categories, err := r.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		seeded := make([]core.Category, len(defaultCategories))
		for i, c := range defaultCategories {
			c.ID = newID()
			seeded[i] = c
		}
		if err := saveCollection(ctx, r.store, KeyCategories, seeded); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
	}

	materialCategories, err := r.MaterialCategories(ctx)
	if err != nil {
		return err
	}
	if len(materialCategories) == 0 {
		seeded := make([]core.MaterialCategory, len(defaultMaterialCategories))
		for i, c := range defaultMaterialCategories {
			c.ID = newID()
			seeded[i] = c
		}
		if err := saveCollection(ctx, r.store, KeyMaterialCategories, seeded); err != nil {
			return fmt.Errorf("seed material categories: %w", err)
		}
	}

	return nil
}
