package dto

import "time"

// StaffCreateRequest payload for provisioning.
type StaffCreateRequest struct {
	Email     string `json:"email"`
	StaffName string `json:"staff_name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// StaffUpdateRequest payload. Omitted fields are unchanged.
type StaffUpdateRequest struct {
	StaffName *string `json:"staff_name,omitempty"`
	Role      *string `json:"role,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// StaffResponse is the public view of a staff record.
type StaffResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	StaffName string    `json:"staff_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
