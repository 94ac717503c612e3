package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // Pointer because NULL default is possible
	Extra   string
}

// GetTableColumns retrieves the column definitions for a given table.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	if err := ValidateIdentifier(tableName); err != nil {
		return nil, err
	}

	var columns []ColumnInfo
	// Raw SHOW COLUMNS gives us the exact MySQL type strings, which the
	// GORM migrator abstraction would normalize away.
	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// VerifyColumns checks that every expected column exists on the table.
// It returns an error naming the first missing column.
func VerifyColumns(db *gorm.DB, tableName string, expected []string) error {
	columns, err := GetTableColumns(db, tableName)
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col.Field] = struct{}{}
	}

	for _, name := range expected {
		if _, ok := present[strings.ToLower(name)]; !ok {
			return fmt.Errorf("table %s is missing expected column %q", tableName, name)
		}
	}
	return nil
}
