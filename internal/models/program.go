package models

import "time"

type ProgramStatus string

const (
	ProgramActive    ProgramStatus = "active"
	ProgramInactive  ProgramStatus = "inactive"
	ProgramCompleted ProgramStatus = "completed"
)

func (s ProgramStatus) Valid() bool {
	switch s {
	case ProgramActive, ProgramInactive, ProgramCompleted:
		return true
	}
	return false
}

type Program struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Status      ProgramStatus `json:"status"`
	CreatedBy   *int64        `json:"createdBy,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProgramUpdate is a partial update; nil fields are left unchanged.
type ProgramUpdate struct {
	Name        *string
	Description *string
	Status      *ProgramStatus
}
