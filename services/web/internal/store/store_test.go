package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "gorm not found", in: gorm.ErrRecordNotFound, want: ErrNotFound},
		{name: "pgx no rows", in: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505"}, want: ErrConflict},
		{name: "foreign key violation", in: &pgconn.PgError{Code: "23503"}},
		{name: "passthrough", in: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil && tt.in != nil {
				assert.Equal(t, tt.in, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestPatchWithUpdatedAt(t *testing.T) {
	p := Patch{"title": "River cleanup"}
	out := p.withUpdatedAt()

	assert.Equal(t, "River cleanup", out["title"])
	assert.Contains(t, out, "updated_at")
	assert.NotContains(t, p, "updated_at")
}

func TestNewRequiresHandles(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	_, err = New(nil, &gorm.DB{})
	assert.Error(t, err)
}
