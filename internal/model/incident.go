package model

import (
	"time"
)

type IncidentStatus string

const (
	IncidentStatusActive IncidentStatus = "active"
	IncidentStatusClosed IncidentStatus = "closed"
)

// Incident is the operation a credential grants enrollment into. Only the
// fields this service needs are modeled; the full incident record lives in
// the dashboard backend.
type Incident struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description,omitempty"`
	Status      IncidentStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

type CreateIncidentRequest struct {
	ID          string `json:"id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}
