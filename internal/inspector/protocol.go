package inspector

import "github.com/leapstack-labs/storelens/internal/catalog"

// Database domain method names.
const (
	MethodEnable                = "Database.enable"
	MethodDisable               = "Database.disable"
	MethodGetDatabaseTableNames = "Database.getDatabaseTableNames"
	MethodExecuteSQL            = "Database.executeSQL"
	MethodAddDatabase           = "Database.addDatabase"
)

// EnableResponse acknowledges Database.enable.
type EnableResponse struct{}

// AddDatabaseParams is the payload of Database.addDatabase.
type AddDatabaseParams struct {
	Database catalog.Descriptor `json:"database"`
}

// GetDatabaseTableNamesRequest is the payload of Database.getDatabaseTableNames.
type GetDatabaseTableNamesRequest struct {
	DatabaseID string `json:"databaseId"`
}

// GetDatabaseTableNamesResponse lists the tables of one database.
type GetDatabaseTableNamesResponse struct {
	TableNames []string `json:"tableNames"`
}

// ExecuteSQLRequest is the payload of Database.executeSQL.
type ExecuteSQLRequest struct {
	DatabaseID string `json:"databaseId"`
	Query      string `json:"query"`
}

// ExecuteSQLResponse carries a query result. Values holds the rows flattened
// in row-major order, len(ColumnNames) cells per row.
type ExecuteSQLResponse struct {
	ColumnNames []string  `json:"columnNames"`
	Values      []any     `json:"values"`
	SQLError    *SQLError `json:"sqlError,omitempty"`
}

// SQLError reports a failed query inline.
type SQLError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}
