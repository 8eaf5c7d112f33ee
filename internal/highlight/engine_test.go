package highlight

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const _testGrammar = `<lexer>
  <config>
    <name>QueryQL</name>
    <alias>queryql</alias>
    <alias>qql</alias>
  </config>
  <rules>
    <state name="root">
      <rule pattern="\s+"><token type="Text"/></rule>
      <rule pattern="--.*"><token type="CommentSingle"/></rule>
      <rule pattern="(?i)\b(select|from|where)\b"><token type="Keyword"/></rule>
      <rule pattern="."><token type="Text"/></rule>
    </state>
  </rules>
</lexer>
`

func TestNewEngine(t *testing.T) {
	t.Parallel()

	t.Run("builtins", func(t *testing.T) {
		t.Parallel()

		e, err := NewEngine(nil, "go", " Plaintext ", "")
		require.NoError(t, err)

		assert.True(t, e.HasGrammar("go"))
		assert.True(t, e.HasGrammar("plaintext"))
		assert.False(t, e.HasGrammar("python"))
		assert.Equal(t, []string{"go", "plaintext"}, e.Grammars())
	})

	t.Run("unknown builtin", func(t *testing.T) {
		t.Parallel()

		_, err := NewEngine(nil, "not-a-real-language")
		assert.ErrorIs(t, err, ErrUnknownGrammar)
		assert.ErrorContains(t, err, "not-a-real-language")
	})
}

func TestEngine_Highlight(t *testing.T) {
	t.Parallel()

	h := &Highlighter{Style: PlainStyle, UseClasses: true}
	e, err := NewEngine(h, "go")
	require.NoError(t, err)

	got, err := e.Highlight([]byte("func main() {}"), "go")
	require.NoError(t, err)
	assert.Contains(t, got, `<span class="kd">func</span>`)
	assert.Contains(t, got, `<span class="nf">main</span>`)
	assert.NotContains(t, got, "<pre")

	t.Run("escapes", func(t *testing.T) {
		got, err := e.Highlight([]byte(`x := a < b`), "go")
		require.NoError(t, err)
		assert.Contains(t, got, "&lt;")
		assert.NotContains(t, got, " < ")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := e.Highlight([]byte("x"), "python")
		assert.ErrorIs(t, err, ErrUnknownGrammar)
	})
}

func TestEngine_Plain(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(&Highlighter{UseClasses: true})
	require.NoError(t, err)

	code := []byte(`if a < b && c > "d" {}`)
	got := e.Plain(code)
	assert.Equal(t, `if a &lt; b &amp;&amp; c &gt; "d" {}`, got)
	assert.Equal(t, Escape(code), got)
	assert.NotContains(t, got, "<span")
}

func TestEngine_Install(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(&Highlighter{Style: PlainStyle, UseClasses: true})
	require.NoError(t, err)

	require.False(t, e.HasGrammar("queryql"))
	require.NoError(t, e.Install("queryql", []byte(_testGrammar)))
	assert.True(t, e.HasGrammar("queryql"))

	got, err := e.Highlight([]byte("select a from b -- all"), "queryql")
	require.NoError(t, err)
	assert.Contains(t, got, `<span class="k">select</span>`)
	assert.Contains(t, got, `<span class="k">from</span>`)
	assert.Contains(t, got, `<span class="c1">-- all</span>`)

	t.Run("invalid", func(t *testing.T) {
		err := e.Install("broken", []byte("<lexer><config>"))
		assert.Error(t, err)
		assert.False(t, e.HasGrammar("broken"))
	})
}

func TestEngine_concurrent(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(nil, "go")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.Highlight([]byte("package foo"), "go")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Install("queryql", []byte(_testGrammar)))
		}()
	}
	wg.Wait()
	assert.True(t, e.HasGrammar("queryql"))
}
