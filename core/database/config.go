package database

// Config holds SQL connection settings for the dialogue store. Driver is
// "sqlite3" for the embedded database or "postgres" for a server.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	DSN            string `yaml:"dsn" envconfig:"DB_DSN"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// DriverSQLite selects the embedded sqlite backend.
const DriverSQLite = "sqlite3"

// DriverPostgres selects the postgres backend.
const DriverPostgres = "postgres"
