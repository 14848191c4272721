package sigma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionSequenceOfMapsIsDisjunctive(t *testing.T) {
	r, err := RuleFromYAML([]byte(`
title: or of maps
detection:
  selection:
    - Image: cmd.exe
      User: admin
    - Image: powershell.exe
  condition: selection
`))
	require.NoError(t, err)

	assert.True(t, r.IsMatch(EventFromMap(map[string]interface{}{"Image": "cmd.exe", "User": "admin"})))
	assert.True(t, r.IsMatch(EventFromMap(map[string]interface{}{"Image": "powershell.exe"})))
	assert.False(t, r.IsMatch(EventFromMap(map[string]interface{}{"Image": "cmd.exe", "User": "guest"})))
}

func TestSelectionMapOfMapsIsConjunctive(t *testing.T) {
	r, err := RuleFromYAML([]byte(`
title: map of maps
detection:
  sel1:
    Image: cmd.exe
  sel2:
    User: admin
  condition: sel1 and sel2
`))
	require.NoError(t, err)
	assert.True(t, r.IsMatch(EventFromMap(map[string]interface{}{"Image": "cmd.exe", "User": "admin"})))
	assert.False(t, r.IsMatch(EventFromMap(map[string]interface{}{"Image": "cmd.exe", "User": "guest"})))
}
