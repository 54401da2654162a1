package model

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Models 按依赖顺序排列，被引用的表在前
func Models() []any {
	return []any{&Contract{}, &Clause{}, &VersionMetadata{}}
}

func AutoMigrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return errors.Wrapf(err, "auto migrate %T", m)
		}
	}
	return nil
}
