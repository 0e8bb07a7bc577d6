package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/types"
)

// Partner is a fulfillment partner. Lat/Lng anchor the distance-based delivery
// fee for every order the partner fulfills.
type Partner struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name      string         `gorm:"column:name;type:text;not null"`
	Address   *types.Address `gorm:"column:address;type:jsonb;serializer:json"`
	Lat       float64        `gorm:"column:lat;not null;default:0"`
	Lng       float64        `gorm:"column:lng;not null;default:0"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
