package model

import "time"

const TableNameClause = "contract_clause"

// Clause mapped from table <contract_clause>
type Clause struct {
	ID            int64      `gorm:"column:id;primaryKey" json:"id" form:"id"`
	ContractID    int64      `gorm:"column:contract_id;not null;uniqueIndex:idx_clause_contract_ident_version,priority:1;index:idx_clause_contract_version,priority:1" json:"contractId" form:"contractId"`
	Identifier    string     `gorm:"column:clause_identifier;type:varchar(255);not null;uniqueIndex:idx_clause_contract_ident_version,priority:2" json:"identifier" form:"identifier"`
	ClauseVersion int64      `gorm:"column:clause_version;not null;uniqueIndex:idx_clause_contract_ident_version,priority:3;index:idx_clause_contract_version,priority:2" json:"clauseVersion" form:"clauseVersion"`
	Label         string     `gorm:"column:label;type:varchar(255)" json:"label" form:"label"`
	Content       string     `gorm:"column:content;type:text;not null" json:"content" form:"content"`
	Position      int        `gorm:"column:position;not null;default:0" json:"position" form:"position"`
	IsDeleted     bool       `gorm:"column:is_deleted;not null;default:false" json:"isDeleted" form:"isDeleted"`
	DeletedAt     *time.Time `gorm:"column:deleted_at" json:"deletedAt" form:"deletedAt"`
	Metadata      string     `gorm:"column:metadata;type:text" json:"metadata" form:"metadata"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt" form:"createdAt"`

	Contract *Contract `gorm:"foreignKey:ContractID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

// TableName Clause's table name
func (*Clause) TableName() string {
	return TableNameClause
}
