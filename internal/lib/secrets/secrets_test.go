package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLogin(t *testing.T) {
	login, err := GenerateLogin()
	require.NoError(t, err)
	assert.Len(t, login, 8)
}

func TestGeneratePassword(t *testing.T) {
	password, err := GeneratePassword()
	require.NoError(t, err)
	assert.Len(t, password, 12)
}

func TestGenerateMTProtoSecret(t *testing.T) {
	secret, err := GenerateMTProtoSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", secret)

	other, err := GenerateMTProtoSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestBuildProxyLink(t *testing.T) {
	link := BuildProxyLink("1.2.3.4", 1080, "user1", "pass1")
	assert.Equal(t, "https://t.me/socks?server=1.2.3.4&port=1080&user=user1&pass=pass1", link)
}
