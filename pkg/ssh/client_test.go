package ssh

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteArgs(t *testing.T) {
	assert.Equal(t, "ovn-nbctl --format=json list Logical_Switch",
		QuoteArgs([]string{"ovn-nbctl", "--format=json", "list", "Logical_Switch"}))
	assert.Equal(t, `ovn-nbctl find ACL 'match="ip4.src == 10.0.0.1"'`,
		QuoteArgs([]string{"ovn-nbctl", "find", "ACL", `match="ip4.src == 10.0.0.1"`}))
	assert.Equal(t, `echo '' 'it'"'"'s'`, QuoteArgs([]string{"echo", "", "it's"}))
}

func TestAuthMethods(t *testing.T) {
	_, err := authMethods(&ConnectionInfo{Host: "h", Username: "u"})
	assert.Error(t, err)

	methods, err := authMethods(&ConnectionInfo{Host: "h", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Len(t, methods, 2)

	bad := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(bad, []byte("not a key"), 0o600))
	_, err = authMethods(&ConnectionInfo{Host: "h", Username: "u", KeyFile: bad})
	assert.Error(t, err)
}

func TestRunWithoutConnection(t *testing.T) {
	c := NewClient(nil)
	res, err := c.Run(context.Background(), "true")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, -1, res.ExitCode)
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close())
}
