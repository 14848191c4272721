package sigma

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmarules/engine/pkg/types"
)

func writeRule(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNewRulesetCountsOKAndFailures(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "good.yml", basicRule)
	writeRule(t, dir, "broken.yml", `
detection:
  selection:
    a: 1
  condition: selection
`) // missing title
	writeRule(t, dir, "unsupported.yml", `
title: bad condition
detection:
  selection:
    a: 1
  condition: nosuchselection
`)

	rs, err := NewRuleset(Config{Directory: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, 3, rs.Total)
	assert.Equal(t, 1, rs.OK)
	assert.Equal(t, 2, rs.Failed)
	assert.Equal(t, 1, rs.Broken)
	assert.Equal(t, 1, rs.Unsupported)
}

func TestRulesetEvalAllConcurrentPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "good.yml", basicRule)

	rs, err := NewRuleset(Config{Directory: []string{dir}})
	require.NoError(t, err)
	require.Equal(t, 1, rs.OK)

	matchEvent := EventFromMap(map[string]interface{}{
		"CommandLine": "DownloadString",
		"Image":       `c:\powershell.exe`,
	})
	noMatchEvent := EventFromMap(map[string]interface{}{"CommandLine": "dir"})

	events := make([]types.Event, 0, 20)
	for i := 0; i < 10; i++ {
		events = append(events, matchEvent, noMatchEvent)
	}

	out := rs.EvalAllConcurrent(events, 4)
	require.Len(t, out, len(events))
	for i, results := range out {
		if i%2 == 0 {
			assert.NotEmpty(t, results)
		} else {
			assert.Empty(t, results)
		}
	}
}
