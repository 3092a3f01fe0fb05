package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentCompleted, EnrollmentDropped:
		return true
	}
	return false
}

// Enrollment links one client to one program. The (ClientID, ProgramID)
// pair is unique whatever the status.
type Enrollment struct {
	ID          int64            `json:"id"`
	ClientID    int64            `json:"clientId"`
	ProgramID   int64            `json:"programId"`
	Status      EnrollmentStatus `json:"status"`
	EnrolledAt  time.Time        `json:"enrolledAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	CreatedBy   *int64           `json:"createdBy,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// EnrollmentWithProgram embeds the program an enrollment points at.
type EnrollmentWithProgram struct {
	Enrollment
	Program *Program `json:"program"`
}

// CreateEnrollmentCommand is the input of the enroll operation.
type CreateEnrollmentCommand struct {
	ClientID  int64
	ProgramID int64
	Notes     *string
	CreatedBy *int64
}

// UpdateEnrollmentCommand changes status and/or notes of an enrollment.
type UpdateEnrollmentCommand struct {
	ID     int64
	Status *EnrollmentStatus
	Notes  *string
}
