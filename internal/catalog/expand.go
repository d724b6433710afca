package catalog

import "github.com/budgetke/budgetke-api/internal/models"

// ExpandOrderItems rewrites a submitted cart into the product-level lines
// that get persisted on the order. Every bundle line becomes one line per
// member product (price 0, quantity 1) so each file stays independently
// downloadable; the bundle's own price is already reflected in the cart
// subtotal, which is computed from the pre-expansion items.
//
// Product lines, bundles that cannot be resolved, and bundles with no
// members pass through unchanged.
func (c *Catalog) ExpandOrderItems(items []models.OrderItem) ([]models.OrderItem, error) {
	expanded := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Type != models.ItemTypeBundle {
			expanded = append(expanded, item)
			continue
		}

		bundle, err := c.BundleByRef(item.ProductID)
		if err != nil {
			return nil, err
		}
		if bundle == nil || len(bundle.ProductSlugs) == 0 {
			expanded = append(expanded, item)
			continue
		}

		for _, productSlug := range bundle.ProductSlugs {
			name := productSlug
			productID := productSlug
			product, err := c.ProductByRef(productSlug)
			if err != nil {
				return nil, err
			}
			if product != nil {
				name = product.Name
				productID = product.ID
			}
			expanded = append(expanded, models.OrderItem{
				ProductID: productID,
				Name:      name,
				Price:     0,
				Quantity:  1,
				Type:      models.ItemTypeProduct,
			})
		}
	}
	return expanded, nil
}
