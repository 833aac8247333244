package category

// Category groups products for browsing and filtering.
type Category struct {
	ID          int    `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
