package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserDetails is a peripheral, 1:1 profile sibling of User. It carries no
// invariant beyond field length limits and is untouched by any
// authentication or PoW state machine in this package.
type UserDetails struct {
	UserID      uuid.UUID
	DisplayName string
	Bio         string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
