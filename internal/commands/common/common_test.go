package common

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PancyStudios/PancyGuardGo/pkg/platform"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
	"github.com/PancyStudios/PancyGuardGo/pkg/warnings"
)

func TestDescribeUnwrapsCoreErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("kick: %w", platform.ErrHierarchyViolation), "rol igual o superior"},
		{platform.ErrPermissionDenied, "faltan permisos"},
		{fmt.Errorf("%w: %q", security.ErrInvalidCategory, "x"), "Categoría"},
		{security.ErrInvalidMax, "entre 1 y 100"},
		{warnings.ErrNoWarnings, "no tiene advertencias"},
		{fmt.Errorf("%w: role gone", warnings.ErrJailNotConfigured), "rol de cárcel"},
		{fmt.Errorf("containing u1: %w", warnings.ErrAlreadyJailed), "ya está en la cárcel"},
		{context.DeadlineExceeded, "demasiado"},
		{assert.AnError, "error inesperado"},
	}
	for _, c := range cases {
		assert.Contains(t, Describe(c.err), c.want, c.err.Error())
	}
}

func TestEmbedsAndFormatting(t *testing.T) {
	e := ErrorEmbed("Error", platform.ErrNotFound)
	assert.Equal(t, "❌ Error", e.Title)
	assert.Equal(t, ColorError, e.Color)

	s := SuccessEmbed("Listo", "hecho")
	assert.Equal(t, "hecho", s.Description)
	assert.Equal(t, FooterText, s.Footer.Text)

	assert.Equal(t, "Sin razón especificada", Reason(""))
	assert.Equal(t, "spam", Reason("spam"))
	assert.Equal(t, "<@1>", Mention("1"))
	assert.Equal(t, "<@&2>", RoleMention("2"))
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(fmt.Errorf("ban: %w", platform.ErrHierarchyViolation)))
	assert.True(t, IsUserError(warnings.ErrNotConfigured))
	assert.False(t, IsUserError(assert.AnError))
	assert.False(t, IsUserError(context.DeadlineExceeded))
}
