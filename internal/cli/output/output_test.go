package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveMode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode(), "non-TTY auto is markdown")
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, "").EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&buf, &buf, ModeJSON).EffectiveMode())
	assert.Equal(t, ModeText, NewRendererWithTTY(&buf, &buf, true, ModeAuto).EffectiveMode(), "TTY auto is text")
}

func TestRows(t *testing.T) {
	cols := []string{"<index>", "name", "photo"}
	rows := [][]any{{int64(0), "Alice", []byte{0xca, 0xfe}}, {int64(1), nil, nil}}

	tests := []struct {
		mode Mode
		want []string
	}{
		{ModeText, []string{"Alice", "NULL", "0xcafe", "(2 rows)"}},
		{ModeMarkdown, []string{"| <index> |", "Alice", "NULL"}},
		{ModeCSV, []string{"<index>,name,photo", "0,Alice,0xcafe", "1,NULL,NULL"}},
		{ModeJSON, []string{`"name": "Alice"`, `"name": null`}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			var buf bytes.Buffer
			r := NewRenderer(&buf, &buf, tt.mode)
			require.NoError(t, r.Rows(cols, rows))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRows_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, &buf, ModeText).Rows([]string{"a"}, nil))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3.5", FormatValue(3.5))
}

func TestWarning(t *testing.T) {
	var out, errOut bytes.Buffer
	NewRenderer(&out, &errOut, ModeText).Warning("no databases found")
	assert.Empty(t, out.String())
	assert.Equal(t, "warning: no databases found\n", errOut.String())
}
