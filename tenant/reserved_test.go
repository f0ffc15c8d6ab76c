package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReserved(t *testing.T) {
	reserved := NewReservedNames()

	tests := []struct {
		name     string
		tenant   string
		expected bool
	}{
		{"public is reserved", "public", true},
		{"information_schema is reserved", "information_schema", true},
		{"pg_catalog is reserved", "pg_catalog", true},
		{"pg_toast is reserved", "pg_toast", true},
		{"pg_ prefix is reserved", "pg_anything_at_all", true},
		{"pg_temp schemas are reserved", "pg_temp_3", true},
		{"ordinary name is not reserved", "acme", false},
		{"name containing pg_ inside is not reserved", "my_pg_tenant", false},
		{"empty string is not reserved", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, reserved.IsReserved(tt.tenant))
		})
	}
}

func TestIsReservedWithExtras(t *testing.T) {
	reserved := NewReservedNames("www", "admin")

	assert.True(t, reserved.IsReserved("www"))
	assert.True(t, reserved.IsReserved("admin"))
	assert.True(t, reserved.IsReserved("public"))
	assert.False(t, reserved.IsReserved("customer"))
}
