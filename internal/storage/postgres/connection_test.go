package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/code-editor-backend/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "code"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=code sslmode=disable", dsn)
}
