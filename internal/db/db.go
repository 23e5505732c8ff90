// internal/db/db.go
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/amoreworks/crm-agent-backend/internal/config"
)

// Open connects to Postgres and verifies the connection. The *sql.DB is
// handed to repositories explicitly; there is no package-level connection.
func Open(cfg config.Settings) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return conn, nil
}
