package models

// Product is a read-only catalog entity sourced from the content files.
// The order flow never mutates products; it only resolves names, prices,
// and the deliverable file reference.
type Product struct {
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	// FileURL is either a bare storage path, a Supabase public-object URL,
	// or an arbitrary external URL.
	FileURL string `json:"fileUrl"`
}

// Bundle groups products under one price. It has no deliverable file of
// its own; checkout expands it into its member products.
type Bundle struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	ProductSlugs []string `json:"productSlugs"`
}

// Category is a display grouping for the storefront catalog pages.
type Category struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}
