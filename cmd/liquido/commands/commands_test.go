package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCalcPrintsDisplay(t *testing.T) {
	out, err := run(t, "", "calc",
		"--valor-contrato", "1000",
		"--valor-quitado", "200",
		"--custo-produto", "50",
		"--percentual-comissao", "10")
	require.NoError(t, err)
	require.Equal(t, "R$ 650,00\n", out)
}

func TestCalcMissingFlagsCountAsZero(t *testing.T) {
	out, err := run(t, "", "calc", "--valor-contrato", "1234.5", "--custo-produto", "abc")
	require.NoError(t, err)
	require.Equal(t, "R$ 1.234,50\n", out)
}

func TestCalcJSON(t *testing.T) {
	out, err := run(t, "", "calc", "--valor-contrato", "100", "--valor-quitado", "150", "--json")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, "-R$ 50,00", summary["display"])
	require.Equal(t, "-50", summary["net_result"])
	require.Equal(t, "0", summary["commission_amount"])
}

func TestCalcRejectsArgs(t *testing.T) {
	_, err := run(t, "", "calc", "1000")
	require.Error(t, err)
}

func TestHashPasswordFromFlag(t *testing.T) {
	out, err := run(t, "", "hash-password", "--password", "correct horse battery")
	require.NoError(t, err)
	ok, err := argon2id.ComparePasswordAndHash("correct horse battery", strings.TrimSpace(out))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, err := run(t, "s3cret-passphrase\n", "hash-password")
	require.NoError(t, err)
	ok, err := argon2id.ComparePasswordAndHash("s3cret-passphrase", strings.TrimSpace(out))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := run(t, "", "hash-password", "--password", "short")
	require.ErrorContains(t, err, "at least 8")
}
