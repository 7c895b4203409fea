package singlemodel

import (
	"fmt"
	"strings"
)

// MySQL expects the caller to register a "mysql" driver.
var MySQL = Dialect{
	Name: "mysql",
	upsertSQL: func(td TableDef) string {
		return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON DUPLICATE KEY UPDATE %s = VALUES(%s)",
			td.FullTableName(), td.KeyField, td.ValueField, td.ValueField, td.ValueField)
	},
	createTableSQL: func(td TableDef) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(%d) NOT NULL DEFAULT '', %s TEXT NULL, PRIMARY KEY (%s)) DEFAULT CHARSET=utf8mb4",
			td.FullTableName(), td.KeyField, MaxFieldLength, td.ValueField, td.KeyField)
	},
	missingTable: func(err error) bool {
		return mysqlErrorIn(err, 1146)
	},
	alreadyExists: func(err error) bool {
		return mysqlErrorIn(err, 1050)
	},
	constraint: func(err error) bool {
		// data too long, column cannot be null, incorrect value, foreign key, check constraint
		return mysqlErrorIn(err, 1406, 1048, 1366, 1452, 3819)
	},
}

func mysqlErrorIn(err error, codes ...int) bool {
	msg := err.Error()
	for _, code := range codes {
		if strings.Contains(msg, fmt.Sprintf("Error %d", code)) {
			return true
		}
	}
	return false
}
