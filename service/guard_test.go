package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/madickblog/models"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name  string
		actor *Actor
		want  Decision
		kind  models.ErrorKind
	}{
		{"anonymous", nil, DenyUnauthorized, models.KindUnauthorized},
		{"other user", &Actor{ID: 2}, DenyForbidden, models.KindForbidden},
		{"author", &Actor{ID: 1}, Allow, ""},
	}
	for _, tt := range tests {
		for _, op := range []Operation{OpEdit, OpDelete} {
			t.Run(tt.name+"/"+string(op), func(t *testing.T) {
				got := Authorize(op, tt.actor, 1)
				assert.Equal(t, tt.want, got)
				if tt.kind == "" {
					assert.NoError(t, got.Err(op))
					return
				}
				assert.True(t, models.IsKind(got.Err(op), tt.kind))
			})
		}
	}
}
