package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbook/landbook/internal/app"
	"github.com/landbook/landbook/internal/auth"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/jobs"
)

func TestBuildTask(t *testing.T) {
	task, err := BuildTask("cheque-sweep", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskChequeSweep, task.Type())
	var payload jobs.ChequeSweepPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "2024-03-15", payload.Date)

	task, err = BuildTask(jobs.TaskLedgerIntegrity, "")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskLedgerIntegrity, task.Type())

	task, err = BuildTask("idempotency-cleanup", "")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskIdempotencyCleanup, task.Type())

	_, err = BuildTask("cheque-sweep", "15/03/2024")
	assert.Error(t, err)
	_, err = BuildTask("mail:send", "")
	assert.Error(t, err)
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	cfg := &app.Config{JWTSecret: "cli-secret", JWTIssuer: "landbook"}
	var stdout, stderr bytes.Buffer

	code := Run(context.Background(), cfg, nil, []string{"token", "-user", "9", "-role", "HOF"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	verifier, err := auth.NewVerifier("cli-secret", "landbook")
	require.NoError(t, err)
	p, err := verifier.Parse(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, shared.Principal{UserID: 9, Role: shared.RoleHOF}, p)
}

func TestRunRejectsBadUsage(t *testing.T) {
	cfg := &app.Config{JWTSecret: "x"}
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, Run(context.Background(), cfg, nil, nil, &stdout, &stderr))
	assert.Equal(t, 2, Run(context.Background(), cfg, nil, []string{"token", "-user", "1", "-role", "Intern"}, &stdout, &stderr))
	assert.Equal(t, 2, Run(context.Background(), cfg, nil, []string{"jobs", "trigger", "nope"}, &stdout, &stderr))
	assert.Equal(t, 2, Run(context.Background(), cfg, nil, []string{"launch"}, &stdout, &stderr))
}
