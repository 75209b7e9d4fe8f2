// api/models/funnel.go
package models

import "time"

// Funnel is the metadata record for one multi-step funnel, kept in
// Postgres. Events reference it by FunnelID.
type Funnel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	StepCount int       `json:"stepCount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateFunnelRequest struct {
	ID        string `json:"id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Domain    string `json:"domain" binding:"required"`
	StepCount int    `json:"stepCount"`
}
