package user

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID       int    `json:"userId"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`

	// password-reset bookkeeping, never serialized
	ResetTokenHash string `json:"-"`
	ResetExpiresAt string `json:"-"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// sanitizeUser clears fields that must never leave the server.
func sanitizeUser(u User) User {
	u.Password = ""
	u.ResetTokenHash = ""
	u.ResetExpiresAt = ""
	return u
}
