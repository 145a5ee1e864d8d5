package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@db:5432/mail?sslmode=disable", "pgx5://u:p@db:5432/mail?sslmode=disable"},
		{"postgresql://u:p@db/mail", "pgx5://u:p@db/mail"},
		{"pgx5://u:p@db/mail", "pgx5://u:p@db/mail"},
		{"u:p@db/mail", "pgx5://u:p@db/mail"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, MigrationURL(tc.in), tc.in)
	}
}
