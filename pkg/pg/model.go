package pg

import (
	"time"

	"github.com/google/uuid"
)

// Model is the base of every insert-only entity: a UUID key set by the
// application and a store managed creation time.
type Model struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
