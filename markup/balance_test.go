package markup

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// repair runs the tree stages on input and returns the rendered result and
// the recorded fixes.
func repair(t *testing.T, cm ContentModel, input string, opts ...BalanceOption) (string, *Tree, []Fix) {
	t.Helper()
	toks, err := Tokenize(strings.NewReader(input), cm)
	require.NoError(t, err)

	var fixes []Fix
	opts = append(opts, WithRecorder(func(f Fix) { fixes = append(fixes, f) }))

	tr := Build(toks, cm)
	Balance(tr, cm, opts...)
	return render(Flatten(tr)), tr, fixes
}

func TestBalance(t *testing.T) {
	// a may not hold text; c may not hold b
	tests := []struct {
		name      string
		input     string
		want      string
		wantFixes []string
	}{
		{
			name:  "alreadyValid",
			input: "<a><b>x</b><c>y</c></a>",
			want:  "<a><b>x</b><c>y</c></a>",
		},
		{
			name:      "relocateToGrandparent",
			input:     "<a><c><b></b></c></a>",
			want:      "<a><c/><b/></a>",
			wantFixes: []string{"RELOCATED: <b>"},
		},
		{
			name:      "relocatedSubtreeKeepsContent",
			input:     "<a><c>1<b>2</b>3</c></a>",
			want:      "<a><c>13</c><b>2</b></a>",
			wantFixes: []string{"RELOCATED: <b>"},
		},
		{
			name:      "orphanCloseDropped",
			input:     "<a><b>x</b></x></a>",
			want:      "<a><b>x</b></a>",
			wantFixes: []string{"STRAY CLOSE TAG: </x>"},
		},
		{
			name:      "textWithoutContainerDropped",
			input:     "<a>loose<b>x</b></a>",
			want:      "<a><b>x</b></a>",
			wantFixes: []string{"ILLEGAL CONTENT: loose"},
		},
		{
			name:      "rootChecked",
			input:     "top<b>x</b><a></a>",
			want:      "<a/>",
			wantFixes: []string{"ILLEGAL CONTENT: top", "ILLEGAL CONTENT: <b>"},
		},
		{
			name:  "commentsAndCDataStay",
			input: "<!--r--><a><!--in--><![CDATA[raw]]></a>",
			want:  "<!--r--><a><!--in--><![CDATA[raw]]></a>",
		},
		{
			name:      "nestedSameTag",
			input:     "<a><b>x<b>y</b></b></a>",
			want:      "<a><b>x</b><b>y</b></a>",
			wantFixes: []string{"RELOCATED: <b>"},
		},
		{
			name:      "unclosedTagsClosed",
			input:     "<a><b>x<c>y",
			want:      "<a><b>x</b><c>y</c></a>",
			wantFixes: []string{"RELOCATED: <c>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, fixes := repair(t, abcModel(), tt.input)
			require.Equal(t, tt.want, got)

			var gotFixes []string
			for _, f := range fixes {
				gotFixes = append(gotFixes, f.String())
			}
			if diff := cmp.Diff(tt.wantFixes, gotFixes, tokenOpts); diff != "" {
				t.Errorf("fixes diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBalance_RelocationTarget(t *testing.T) {
	_, tr, _ := repair(t, abcModel(), "<a><c><b></b></c></a>")

	a := tr.Children(Root)[0]
	children := tr.Children(a)
	require.Len(t, children, 2)
	require.Equal(t, "<c>", tr.Payload(children[0]).String())
	require.Equal(t, "<b>", tr.Payload(children[1]).String())
}

func TestBalance_Annotate(t *testing.T) {
	got, _, fixes := repair(t, abcModel(), "<a>loose<b>x</b></x></a>", WithAnnotate())
	require.Len(t, fixes, 2)
	require.Equal(t, "<a><!--XMLBS!: ILLEGAL CONTENT: loose--><b>x</b><!--XMLBS!: STRAY CLOSE TAG: </x>--></a>", got)
}

func TestBalance_AnnotateKeepsSameNodes(t *testing.T) {
	input := "<a><c>1<b>2</b>3</c>oops<b><b>in</b></b></a>x"

	plain, _, plainFixes := repair(t, abcModel(), input)
	annotated, _, annotatedFixes := repair(t, abcModel(), input, WithAnnotate())

	require.Equal(t, len(plainFixes), len(annotatedFixes))

	// stripping the annotations gives the plain result
	toks, err := Tokenize(strings.NewReader(annotated), nil)
	require.NoError(t, err)
	var kept []Token
	for _, tok := range toks {
		if c, ok := tok.(*Comment); ok && strings.HasPrefix(c.Data, AnnotationMarker) {
			continue
		}
		kept = append(kept, tok)
	}
	require.Equal(t, plain, render(kept))
}

func TestFix_Comment(t *testing.T) {
	f := Fix{Kind: UnknownTag, Token: open("x", Attribute{Key: "a", Val: "--b-"})}
	c := f.Comment()
	require.NotContains(t, c.Data, "--")
	require.False(t, strings.HasSuffix(c.Data, "-"))
	require.True(t, strings.HasPrefix(c.Data, "XMLBS!: UNKNOWN TAG: <x"))
}
