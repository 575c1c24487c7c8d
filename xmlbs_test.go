package xmlbs

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/dpotapov/xmlbs/markup"
	"github.com/dpotapov/xmlbs/schema"
)

// testGrammar: the root holds a and text; a holds b and c; b holds text
// and c; c holds text.
const testGrammar = `
@ROOT = a #TEXT
a = b c $id
b = #TEXT c
c = #TEXT
`

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.LoadProperties(strings.NewReader(testGrammar))
	require.NoError(t, err)
	return s
}

func repairString(t *testing.T, cm markup.ContentModel, input string, opts ...Option) (string, []string) {
	t.Helper()
	var out strings.Builder
	fixes, err := Repair(strings.NewReader(input), &out, cm, opts...)
	require.NoError(t, err)

	var got []string
	for _, f := range fixes {
		got = append(got, f.String())
	}
	return out.String(), got
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		wantFixes []string
	}{
		{
			name:  "alreadyValid",
			input: "<a><b><c></c></b></a>",
			want:  "<a><b><c/></b></a>",
		},
		{
			name:      "relocateToAncestor",
			input:     "<a><c><b></b></c></a>",
			want:      "<a><c/><b/></a>",
			wantFixes: []string{"RELOCATED: <b>"},
		},
		{
			name:      "orphanClose",
			input:     "<a><c>t</c></b></a>",
			want:      "<a><c>t</c></a>",
			wantFixes: []string{"STRAY CLOSE TAG: </b>"},
		},
		{
			name:      "unknownTags",
			input:     "<foo>hello & bye<bar>",
			want:      "hello &amp; bye",
			wantFixes: []string{"UNKNOWN TAG: <foo>", "UNKNOWN TAG: <bar>"},
		},
		{
			name:      "mergeAdjacentText",
			input:     "<a><b>one<foo/>two</b></a>",
			want:      "<a><b>one two</b></a>",
			wantFixes: []string{"UNKNOWN TAG: <foo/>"},
		},
		{
			name:  "unclosedTags",
			input: "<a><b>x<c>y",
			want:  "<a><b>x<c>y</c></b></a>",
		},
		{
			name:  "unknownAttributesDropped",
			input: `<a id="1" onclick="evil()"><b style='x'>t</b></a>`,
			want:  `<a id="1"><b>t</b></a>`,
		},
		{
			name:  "entitiesPreserved",
			input: "<a><b>&lt;&#169;&amp;&copy;</b></a>",
			want:  "<a><b>&lt;&#169;&amp;&amp;copy;</b></a>",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fixes := repairString(t, testSchema(t), tt.input)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.wantFixes, fixes)
		})
	}
}

func TestRepair_Annotate(t *testing.T) {
	got, fixes := repairString(t, testSchema(t), "<foo>hello<bar>", WithAnnotate(true))
	require.Equal(t, "<!--XMLBS!: UNKNOWN TAG: <foo>-->hello<!--XMLBS!: UNKNOWN TAG: <bar>-->", got)
	require.Len(t, fixes, 2)

	got, _ = repairString(t, testSchema(t), "<c>x</c><a></a>", WithAnnotate(true))
	require.Equal(t, "<!--XMLBS!: ILLEGAL CONTENT: <c>--><a/>", got)
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		"<p>Hello <b>world</p>",
		"<html><body><ul><li>one<li>two</ul></body></html>",
		"<html><body><table><td>cell</table><p>a < b</p></body></html>",
		`<html><body><p align=center class="x" bogus='1'>Fish &amp; Chips &nbsp;<br></p></body>`,
		"<html><head><title>t</title><body><div><span>x</div></span>",
		"<html><body><!-- note --><pre><![CDATA[ <raw> ]]></pre></body></html>",
	}
	for _, input := range inputs {
		first, _ := repairString(t, schema.XHTML(), input)
		second, fixes := repairString(t, schema.XHTML(), first)
		require.Equal(t, first, second, "input %q", input)
		require.Empty(t, fixes, "input %q", input)
	}
}

func TestRepair_WellFormed(t *testing.T) {
	inputs := []string{
		"<html><body><p>unclosed <i>italic <b>bold</p></body>",
		"<html><body></div></span><p>stray closes</p>",
		"<html><body><p a=1 b='2' c=\"3\" d>attrs</p></body></html>",
		"<html>< body <p>lone < and > and & here</p></html>",
		"<html><body><p>x --> y</p><!-- note --></body></html>",
	}
	for _, input := range inputs {
		for _, annotate := range []bool{false, true} {
			got, _ := repairString(t, schema.XHTML(), input, WithAnnotate(annotate))
			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromString("<doc>"+got+"</doc>"), "input %q produced %q", input, got)
		}
	}
}

func TestProcess(t *testing.T) {
	cm := testSchema(t)
	in := []markup.Token{
		&markup.Tag{Name: "a", Kind: markup.Open, Attr: []markup.Attribute{{Key: "id", Val: "1"}, {Key: "x", Val: "2"}}},
		&markup.Tag{Name: "b", Kind: markup.Open},
		markup.NewText("t", cm),
		&markup.Tag{Name: "x", Kind: markup.Empty},
		markup.NewText("u", cm),
	}
	want := []markup.Token{
		&markup.Tag{Name: "a", Kind: markup.Open, Attr: []markup.Attribute{{Key: "id", Val: "1"}}},
		&markup.Tag{Name: "b", Kind: markup.Open},
		markup.NewText("t u", cm),
		&markup.Tag{Name: "b", Kind: markup.Close},
		&markup.Tag{Name: "a", Kind: markup.Close},
	}

	got := Process(in, cm)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Process() mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument(t *testing.T) {
	d := New(strings.NewReader("<a><b>x</a>"), testSchema(t))

	_, err := d.Tokens()
	require.ErrorIs(t, err, ErrNotProcessed)
	_, err = d.WriteTo(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrNotProcessed)

	require.NoError(t, d.Process())
	toks, err := d.Tokens()
	require.NoError(t, err)
	require.Len(t, toks, 5)
	require.Empty(t, d.Fixes())

	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, "<a><b>x</b></a>", buf.String())
	require.Equal(t, int64(buf.Len()), n)
}

func TestDocument_ReadError(t *testing.T) {
	errBoom := errors.New("boom")
	d := New(iotest.ErrReader(errBoom), testSchema(t))
	require.ErrorIs(t, d.Process(), errBoom)

	_, err := Repair(iotest.ErrReader(errBoom), &bytes.Buffer{}, testSchema(t))
	require.ErrorIs(t, err, errBoom)
}

func TestWithLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Repair(strings.NewReader("<a><c><b/></c></a>"), &bytes.Buffer{}, testSchema(t), WithLogger(logger))
	require.NoError(t, err)
	require.Contains(t, logs.String(), "Build tree")
	require.Contains(t, logs.String(), "action=RELOCATED")
}
