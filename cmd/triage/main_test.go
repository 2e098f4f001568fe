package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/ticket-triage/internal/service"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONFIG_FILE", "OPENAI_API_KEY", "ONNX_MODEL_PATH", "PRODUCT_CATALOG", "BATCH_CONCURRENCY"} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestTriage_StdinJSON(t *testing.T) {
	isolateEnv(t)

	out, _, err := execute(t, "Hello, I have a question about my billing statement.", "--demo", "--json")
	require.NoError(t, err)

	var ticket service.Ticket
	require.NoError(t, json.Unmarshal([]byte(out), &ticket))
	assert.Equal(t, service.ActionBilling, ticket.NextAction)
	assert.Equal(t, "UNKNOWN", ticket.CustomerID)
	assert.NoError(t, ticket.Validate())
}

func TestTriage_FileFormatted(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "email.txt")
	require.NoError(t, os.WriteFile(path, []byte("Our Widget-X is down again, this is unacceptable!\n"), 0o600))

	out, _, err := execute(t, "", path, "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Ticket Analysis")
	assert.Contains(t, out, "escalate_to_tier_2")
}

func TestTriage_EmptyInput(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "   \n", "--demo")
	assert.ErrorContains(t, err, "no email text provided")
}

func writeBatch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.txt")
	content := "URGENT: the server is down and nothing works!\n\n" +
		"Thanks for the great service, everything is fine.\n\n" +
		"I was charged twice, please check my payment.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBatch_CSVToStdout(t *testing.T) {
	isolateEnv(t)

	out, errOut, err := execute(t, "", "batch", writeBatch(t), "--demo", "--format", "csv", "--summary", "-c", "2")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "customer_id", rows[0][0])
	assert.Equal(t, "high", rows[1][3], "input order is preserved")
	assert.Contains(t, errOut, "Processing 3 emails")
	assert.Contains(t, errOut, "Total tickets: 3")
}

func TestBatch_YAMLToFile(t *testing.T) {
	isolateEnv(t)
	dest := filepath.Join(t.TempDir(), "out.yaml")

	out, errOut, err := execute(t, "", "batch", writeBatch(t), "--demo", "--format", "yaml", "--output", dest, "--summary")
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "customer_id:"))
	assert.Contains(t, errOut, "Results exported to "+dest)
	assert.Contains(t, out, "Batch Processing Summary")
}

func TestBatch_Errors(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "", "batch", writeBatch(t), "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, _, err = execute(t, "", "batch", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "open email file")

	_, _, err = execute(t, "", "batch")
	assert.Error(t, err)
}
