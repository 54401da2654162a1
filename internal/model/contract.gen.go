package model

import "time"

const TableNameContract = "contract"

// Contract mapped from table <contract>
type Contract struct {
	ID             int64     `gorm:"column:id;primaryKey" json:"id" form:"id"`
	Filename       string    `gorm:"column:filename;type:varchar(512);not null;index:idx_contract_filename" json:"filename" form:"filename"`
	ContentHash    string    `gorm:"column:content_hash;type:char(64);not null;uniqueIndex:idx_contract_content_hash" json:"contentHash" form:"contentHash"`
	CurrentVersion int64     `gorm:"column:current_version;not null;default:1" json:"currentVersion" form:"currentVersion"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName Contract's table name
func (*Contract) TableName() string {
	return TableNameContract
}
