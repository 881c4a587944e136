package all

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shpetl/internal/storage"
)

func TestAllKindsRegistered(t *testing.T) {
	assert.Equal(t, []string{"mssql", "mysql", "postgres", "sqlite"}, storage.ListKinds())
}
