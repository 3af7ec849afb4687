package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the durable identity orders attach to. Account lifecycle is
// owned by the auth collaborator; this table only anchors foreign keys.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
