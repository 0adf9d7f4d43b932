package models

const (
	// TodosTable is the only table owned by the service.
	TodosTable = "todos"

	// DefaultDatabaseName is used when the connection URL names no database.
	DefaultDatabaseName = "tododb"

	// DefaultAdminDatabase is the maintenance database used to create the target one.
	DefaultAdminDatabase = "postgres"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Messages returned in ErrorResponse bodies.
const (
	MsgInternalError     = "Internal Server Error"
	MsgInvalidJSON       = "invalid JSON body"
	MsgInvalidID         = "invalid id"
	MsgRateLimitExceeded = "rate limit exceeded"
	MsgNotFound          = "not found"
)

const (
	// DefaultHTTPPort is used when neither the config file nor PORT set one.
	DefaultHTTPPort = 5000

	DefaultGRPCPort       = 5001
	DefaultPrometheusPort = 9090
)
