package models

// JSON keys keep the storefront's wire format (nombre, precio, ...).

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"nombre" json:"nombre"`
}

type Product struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"nombre" json:"nombre"`
	Price       float64 `db:"precio" json:"precio"`
	Description string  `db:"descripcion" json:"descripcion"`
	CategoryID  *int64  `db:"categoria_id" json:"categoria_id"`

	// Joined from categorias; nil when the product has no category.
	CategoryName *string `db:"categoria" json:"categoria"`
}

// ProductDetail is a product together with its images.
type ProductDetail struct {
	Product
	Images []*Image `json:"imagenes"`
}

type Image struct {
	ID        int64  `db:"id" json:"id"`
	URL       string `db:"url" json:"url"`
	ProductID int64  `db:"producto_id" json:"producto_id"`
}
