package models

import "time"

// Accepted values for Client.Gender
const (
	GenderMale           = "Male"
	GenderFemale         = "Female"
	GenderOther          = "Other"
	GenderPreferNotToSay = "Prefer not to say"
)

type Client struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	Address     *string    `json:"address,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Email       *string    `json:"email,omitempty"`
	CreatedBy   *int64     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ClientInput is the validated set of editable client fields.
type ClientInput struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Gender      *string
	Address     *string
	Phone       *string
	Email       *string
}

// ClientProfile is a client with every enrollment and its program.
type ClientProfile struct {
	Client
	Enrollments []*EnrollmentWithProgram `json:"enrollments"`
}
