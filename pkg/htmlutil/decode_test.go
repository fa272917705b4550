package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"named spanish vowels", "declaraci&oacute;n jur&iacute;dica", "declaración jurídica"},
		{"enie", "ma&ntilde;ana se&Ntilde;OR", "mañana seÑOR"},
		{"numeric decimal", "n&#250;mero &#233;xito", "número éxito"},
		{"numeric hex", "&#xF3;rgano &#xE1;gil", "órgano ágil"},
		{"nbsp and punctuation", "uno&nbsp;dos &copy; &deg;C", "uno dos © °C"},
		{"amp lt gt", "a &amp; b &lt;c&gt;", "a & b <c>"},
		{"unknown entity untouched", "x &bogus; y", "x &bogus; y"},
		{"malformed numeric untouched", "&#; and &#x;", "&#; and &#x;"},
		{"no entities", "texto plano", "texto plano"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decode(tt.input))
		})
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tags removed", "<b>Comunicado</b> <i>oficial</i>", "Comunicado oficial"},
		{"decode before strip", "Texto&nbsp;con&nbsp;acentos", "Texto con acentos"},
		{"entities inside tags", "<td>declaraci&oacute;n</td>", "declaración"},
		{"whitespace collapsed", "uno   dos\n\ttres", "uno dos tres"},
		{"decoded lt-gt stripped as tag", "antes &lt;b&gt; despues", "antes despues"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripTags(tt.input))
		})
	}
}
