package database

import (
	"time"

	"gorm.io/datatypes"
)

// Route is one delivery or install visit planned for a transport company.
type Route struct {
	ID               uint           `gorm:"primaryKey"`
	TypeOfRoute      string         `gorm:"size:30;not null"`
	SrName           string         `gorm:"size:100;not null"`
	Region           string         `gorm:"size:30;not null"`
	CompanyName      string         `gorm:"size:100;not null"`
	OutletName       string         `gorm:"size:100;not null"`
	DeliveryAddress  string         `gorm:"size:100;not null"`
	PosModel         string         `gorm:"size:100"`
	PosSerialNumber  string         `gorm:"size:100"`
	Comment          string         `gorm:"type:text"`
	TransportCompany string         `gorm:"size:100;not null;index:idx_route_day,priority:2"`
	DateForDelivery  datatypes.Date `gorm:"not null;index:idx_route_day,priority:1"`
	UserID           uint           `gorm:"not null;index"`
	User             *User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RouteColumns are the columns a batch update rewrites. id, created_at and
// the owning user never change after creation.
var RouteColumns = []string{
	"type_of_route", "sr_name", "region", "company_name", "outlet_name",
	"delivery_address", "pos_model", "pos_serial_number", "comment",
	"transport_company", "date_for_delivery", "updated_at",
}
