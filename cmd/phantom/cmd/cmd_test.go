package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/phantom/auth"
	"github.com/jmcleod/phantom/blog"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	userPassword = ""
	t.Cleanup(func() {
		userPassword = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
	})
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestReadPassword(t *testing.T) {
	t.Setenv("PHANTOM_PASSWORD", "")
	t.Cleanup(func() { userPassword = "" })

	p, err := readPassword(strings.NewReader("from-stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", p)

	p, err = readPassword(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", p)

	_, err = readPassword(strings.NewReader("\n"))
	assert.Error(t, err)

	t.Setenv("PHANTOM_PASSWORD", "from-env")
	p, err = readPassword(strings.NewReader("from-stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", p)

	userPassword = "from-flag"
	p, err = readPassword(strings.NewReader("from-stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-flag", p)
}

func TestHashPasswordCommand(t *testing.T) {
	t.Setenv("PHANTOM_PASSWORD", "")
	out, err := runCLI(t, "secret123\n", "hash-password", "--cost", "4")
	require.NoError(t, err)

	digest := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(digest, "$2a$04$"), digest)
	assert.True(t, auth.NewPasswordHasher(4).Verify("secret123", digest))
}

func TestUserCommands(t *testing.T) {
	t.Setenv("PHANTOM_PASSWORD", "")
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "nested", "phantom.db")

	out, err := runCLI(t, "secret123\n", "user", "create", "alice", "--database", dsn, "--bcrypt-cost", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user alice")

	_, err = runCLI(t, "", "user", "create", "alice", "--database", dsn, "--bcrypt-cost", "4", "--password", "secret123")
	assert.Error(t, err)

	_, err = runCLI(t, "short\n", "user", "create", "bob", "--database", dsn, "--bcrypt-cost", "4")
	assert.Error(t, err)

	out, err = runCLI(t, "", "user", "passwd", "alice", "--database", dsn, "--bcrypt-cost", "4", "--password", "changed-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "Password updated for alice")

	_, err = runCLI(t, "", "user", "passwd", "nobody", "--database", dsn, "--password", "changed-pass")
	assert.Error(t, err)

	store, err := blog.Open(dsn)
	require.NoError(t, err)
	defer store.Close()
	cred, err := store.FindByUsername(t.Context(), "alice")
	require.NoError(t, err)
	assert.True(t, auth.NewPasswordHasher(4).Verify("changed-pass", cred.PasswordHash))

	_, err = store.FindByUsername(t.Context(), "bob")
	assert.ErrorIs(t, err, auth.ErrCredentialNotFound)
}
