package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/Cartera-api/pkg/jwt"
)

const secret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u-1", "caja@pos.co", "vendedor", "cartera-test", 60)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "caja@pos.co", claims.Email)
	assert.Equal(t, "vendedor", claims.Role)
	assert.Equal(t, "cartera-test", claims.Issuer)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u-1", "", "admin", "cartera-test", 60)
	require.NoError(t, err)
	_, err = pkgjwt.Parse("otro-secreto", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u-1", "", "admin", "cartera-test", -1)
	require.NoError(t, err)
	_, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err, "un token expirado no debe validar")
}

func TestSecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", "u-1", "", "admin", "x", 60)
	assert.Error(t, err)
	_, err = pkgjwt.Parse("", "a.b.c")
	assert.Error(t, err)
}
