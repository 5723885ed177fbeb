package main

import (
	"bytes"
	"testing"

	"stock-alert-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "reconcile", "low-stock", "alerts"} {
		assert.True(t, names[want], want)
	}
}

func TestCommandsRequireDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"low-stock"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printReport(&out, &service.ReconcileReport{Checked: 4, Opened: 1, Duration: "3ms"}))
	assert.Equal(t, "checked=4 opened=1 resolved=0 failed=0 in 3ms\n", out.String())

	out.Reset()
	err := printReport(&out, &service.ReconcileReport{Checked: 1, Failed: 1, Failures: []string{"p1: boom"}})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "failed: p1: boom")
}
