package model

import "time"

const TableNameVersionMetadata = "contract_version"

// VersionMetadata mapped from table <contract_version>
type VersionMetadata struct {
	ID             int64     `gorm:"column:id;primaryKey" json:"id" form:"id"`
	ContractID     int64     `gorm:"column:contract_id;not null;uniqueIndex:idx_version_contract_version,priority:1" json:"contractId" form:"contractId"`
	Version        int64     `gorm:"column:version;not null;uniqueIndex:idx_version_contract_version,priority:2" json:"version" form:"version"`
	ContentHash    string    `gorm:"column:content_hash;size:64;not null;default:'';index:idx_version_content_hash" json:"contentHash" form:"contentHash"`
	Filename       string    `gorm:"column:filename;size:512;not null;default:''" json:"filename" form:"filename"`
	ChangedClauses string    `gorm:"column:changed_clauses;type:text" json:"changedClauses" form:"changedClauses"`
	ModifiedCount  int       `gorm:"column:modified_count;not null;default:0" json:"modifiedCount" form:"modifiedCount"`
	AddedCount     int       `gorm:"column:added_count;not null;default:0" json:"addedCount" form:"addedCount"`
	DeletedCount   int       `gorm:"column:deleted_count;not null;default:0" json:"deletedCount" form:"deletedCount"`
	UnchangedCount int       `gorm:"column:unchanged_count;not null;default:0" json:"unchangedCount" form:"unchangedCount"`
	Degraded       bool      `gorm:"column:degraded;not null;default:false" json:"degraded" form:"degraded"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt" form:"createdAt"`

	Contract *Contract `gorm:"foreignKey:ContractID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

// TableName VersionMetadata's table name
func (*VersionMetadata) TableName() string {
	return TableNameVersionMetadata
}
