package user

// CreateUserRequest represents the request payload for creating a user on behalf of
// an operator. Such accounts have no password until one is set elsewhere.
type CreateUserRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=50"`
	Surname string `json:"surname" validate:"required,min=2,max=50"`
	Email   string `json:"email" validate:"required,email"`
}

// UpdateUserRequest represents the request payload for a partial update.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	ID      string  `json:"-" validate:"required"`
	Name    *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Surname *string `json:"surname,omitempty" validate:"omitempty,min=2,max=50"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID string `validate:"required"`
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID string `validate:"required"`
}

// ListUsersRequest represents the request payload for listing users.
// A zero Limit means the store maximum.
type ListUsersRequest struct {
	Limit int `validate:"gte=0"`
}
