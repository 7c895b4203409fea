package singlemodel

import (
	"fmt"
	"strings"
)

// Oracle expects the caller to register an Oracle driver. MERGE is a single
// statement, but two sessions inserting the same new key at once can still see
// a unique violation, which surfaces as ErrConstraint and is safe to retry.
var Oracle = Dialect{
	Name: "oracle",
	upsertSQL: func(td TableDef) string {
		return fmt.Sprintf("MERGE INTO %s d USING (SELECT ? AS k, ? AS v FROM dual) s ON (d.%s = s.k) "+
			"WHEN MATCHED THEN UPDATE SET d.%s = s.v "+
			"WHEN NOT MATCHED THEN INSERT (%s, %s) VALUES (s.k, s.v)",
			td.FullTableName(), td.KeyField, td.ValueField, td.KeyField, td.ValueField)
	},
	createTableSQL: func(td TableDef) string {
		return fmt.Sprintf("CREATE TABLE %s (%s VARCHAR2(%d CHAR) NOT NULL PRIMARY KEY, %s CLOB NULL)",
			td.FullTableName(), td.KeyField, MaxFieldLength, td.ValueField)
	},
	missingTable: func(err error) bool {
		return oraErrorIn(err, "ORA-00942")
	},
	alreadyExists: func(err error) bool {
		return oraErrorIn(err, "ORA-00955")
	},
	constraint: func(err error) bool {
		return oraErrorIn(err, "ORA-00001", "ORA-01400", "ORA-12899", "ORA-02290", "ORA-02291")
	},
}

func oraErrorIn(err error, codes ...string) bool {
	msg := err.Error()
	for _, code := range codes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
