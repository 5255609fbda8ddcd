package models

// Category groups catalog products. Products are filtered by Slug.
type Category struct {
	BaseModel
	Name        string    `json:"name"`
	Slug        string    `gorm:"uniqueIndex" json:"slug"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Products    []Product `json:"products,omitempty"`
}

// ProductOrdering lists the accepted values of the products "ordering" query
// parameter mapped to their ORDER BY clause.
var ProductOrdering = map[string]string{
	"name":        "name asc",
	"-name":       "name desc",
	"price":       "price asc",
	"-price":      "price desc",
	"created_at":  "created_at asc",
	"-created_at": "created_at desc",
}

// DefaultProductOrdering is used when the requested ordering is unknown.
const DefaultProductOrdering = "name"
