package database

import "time"

// UploadedFile is one ingested spreadsheet. Its name is unique per owner.
type UploadedFile struct {
	ID         uint       `gorm:"primaryKey"`
	Name       string     `gorm:"size:255;not null;uniqueIndex:idx_owner_file_name"`
	OwnerID    uint       `gorm:"not null;uniqueIndex:idx_owner_file_name"`
	Owner      *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	UploadedAt time.Time  `gorm:"not null;index"`
	Rows       []*FileRow `gorm:"foreignKey:FileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	RowCount int64 `gorm:"-"`
}

// FileRow is one asset line of an uploaded file. PosSerialNumber is the
// reconciliation key, it is indexed but not unique.
type FileRow struct {
	ID      uint `gorm:"primaryKey"`
	FileID  uint `gorm:"not null;index:idx_file_serial,priority:1"`
	OwnerID uint `gorm:"not null;index"`

	PosSerialNumber    string `gorm:"size:255;index:idx_file_serial,priority:2"`
	PosModel           string `gorm:"size:255"`
	PosType            string `gorm:"size:255"`
	AssetStatus        string `gorm:"size:255"`
	TechnicalCondition string `gorm:"size:255"`
	OutletName         string `gorm:"size:255"`
	OutletWhsName      string `gorm:"size:255"`
	OutletWhsAddress   string `gorm:"size:255"`
	City               string `gorm:"size:255"`
	Region             string `gorm:"size:255"`
	CompanyName        string `gorm:"size:255"`
	CompanyBulstat     string `gorm:"size:255"`
	AccountKey         string `gorm:"size:255"`
	AccountType        string `gorm:"size:255"`
	Agent              string `gorm:"size:255"`
	AgentName          string `gorm:"size:255"`
	ContractNumber     string `gorm:"size:255"`
	ContractStartDate  string `gorm:"size:255"`
	ContractEndDate    string `gorm:"size:255"`
	Comment            string `gorm:"size:255"`

	ScannedTechnicalCondition string `gorm:"size:255"`
	ScannedOutletWhsName      string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
