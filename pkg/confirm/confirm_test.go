package confirm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminal(t *testing.T) {
	testCases := []struct {
		input   string
		want    bool
		prompts int
	}{
		{"y\n", true, 1},
		{"YES\n", true, 1},
		{"n\n", false, 1},
		{"\n", false, 1},
		{"", false, 1},
		{"maybe\nyes\n", true, 2},
		{"maybe", false, 1},
	}

	for _, tc := range testCases {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			out := &bytes.Buffer{}
			term := &Terminal{In: strings.NewReader(tc.input), Out: out}

			got, err := term.Confirm("Operation type: Delete. Found: 3 documents. Proceed?")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.prompts, strings.Count(out.String(), "Proceed? [y/N]"))
		})
	}
}

func TestAlwaysAndRecorder(t *testing.T) {
	ok, err := Always(true).Confirm("x")
	require.NoError(t, err)
	assert.True(t, ok)

	r := &Recorder{}
	ok, err = r.Confirm("first")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"first"}, r.Messages)
}
