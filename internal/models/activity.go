package models

import (
	"encoding/json"
	"time"
)

type ActivityEntry struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	NodeID    *string         `json:"node_id,omitempty"`
	Action    string          `json:"action" example:"file_uploaded"`
	Details   json.RawMessage `json:"details,omitempty" swaggertype:"object"`
	CreatedAt time.Time       `json:"created_at"`
}
