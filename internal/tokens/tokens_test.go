package tokens

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristic_Count(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{name: "empty", content: "", want: 0},
		{name: "single short word", content: "hello", want: 1},
		{name: "two words", content: "hello world", want: 2},
		{name: "acronym", content: "SEO", want: 1},
		{name: "long phrase", content: "Search Engine Optimization", want: 4},
		{name: "very long word", content: "confidentiality", want: 3},
		{name: "digits", content: "123456", want: 2},
		{name: "short digits", content: "7", want: 1},
		{name: "punctuation", content: "a, b.", want: 4},
		{name: "newlines", content: "a\n\nb", want: 4},
		{name: "indentation", content: "    x", want: 2},
		{name: "section sign", content: "§", want: 1},
		{name: "emoji", content: "📊", want: 3},
		{name: "emoji with variation selector", content: "❤️", want: 3},
		{name: "whitespace only", content: " ", want: 1},
		{name: "ideographs", content: "你好", want: 2},
		{name: "snake case key", content: "phase_1_gathering", want: 3},
	}

	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Count(tt.content))
		})
	}
}

func TestHeuristic_SymbolsCostMoreThanLetters(t *testing.T) {
	h := NewHeuristic()

	// Four letters form one word; four emoji are priced individually.
	assert.Equal(t, 1, h.Count("abcd"))
	assert.Equal(t, 12, h.Count("🎉🎊🎁🎈"))
	assert.Greater(t, h.Count("🎉 done"), h.Count("party done"))
}

func TestHeuristic_NotCharRatio(t *testing.T) {
	h := NewHeuristic()
	content := strings.Repeat("word ", 800)

	// A runes/4 estimate would report 1000; word-aware counting reports one per word.
	assert.Equal(t, 800, h.Count(content))
}

func TestHeuristic_Concurrent(t *testing.T) {
	h := NewHeuristic()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 4, h.Count("Search Engine Optimization"))
		}()
	}
	wg.Wait()
}

func TestStats_Saved(t *testing.T) {
	stats := Stats{Before: 1000, After: 600}
	assert.Equal(t, 400, stats.Saved())
}

func TestStats_PercentReduction(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  float64
	}{
		{name: "50% reduction", stats: Stats{Before: 1000, After: 500}, want: 50.0},
		{name: "no reduction", stats: Stats{Before: 1000, After: 1000}, want: 0.0},
		{name: "full reduction", stats: Stats{Before: 1000, After: 0}, want: 100.0},
		{name: "zero before", stats: Stats{Before: 0, After: 0}, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stats.PercentReduction())
		})
	}
}

func TestCounterFunc(t *testing.T) {
	c := CounterFunc(func(s string) int { return len(s) })
	assert.Equal(t, 3, c.Count("abc"))
	assert.Equal(t, "func", c.Name())
}

// writeTable writes a tiny tokenizer table: a=0, b=1, ab=2, " "=3.
func writeTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.json")
	content := `{
  "name": "tiny",
  "bpe_ranks": "!! 0 YQ== Yg== YWI= IA==",
  "pat_str": "\\S+|\\s+",
  "special_tokens": {}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTable(t *testing.T) {
	exact, err := LoadTable(writeTable(t))
	require.NoError(t, err)

	assert.Equal(t, "exact:tiny", exact.Name())
	assert.Equal(t, 0, exact.Count(""))
	assert.Equal(t, 1, exact.Count("ab"))
	assert.Equal(t, 2, exact.Count("abab"))
	assert.Equal(t, 3, exact.Count("ab ab"))
}

func TestLoadTable_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTable(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
		_, err := LoadTable(path)
		assert.Error(t, err)
	})

	t.Run("missing pattern", func(t *testing.T) {
		path := filepath.Join(dir, "nopat.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"bpe_ranks": "!! 0 YQ=="}`), 0644))
		_, err := LoadTable(path)
		assert.ErrorContains(t, err, "pat_str")
	})

	t.Run("bad offset", func(t *testing.T) {
		path := filepath.Join(dir, "offset.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"bpe_ranks": "!! x YQ==", "pat_str": "\\S+"}`), 0644))
		_, err := LoadTable(path)
		assert.ErrorContains(t, err, "offset")
	})
}

func TestSelect_Heuristic(t *testing.T) {
	sel := Select(Options{Strategy: StrategyHeuristic, Table: "/does/not/matter"})

	assert.Equal(t, "heuristic", sel.Counter.Name())
	assert.False(t, sel.Fallback)
	assert.Empty(t, sel.Warning)
}

func TestSelect_Table(t *testing.T) {
	sel := Select(Options{Strategy: StrategyAuto, Table: writeTable(t)})

	assert.Equal(t, "exact:tiny", sel.Counter.Name())
	assert.False(t, sel.Fallback)
}

func TestSelect_FallsBackWithWarning(t *testing.T) {
	sel := Select(Options{Strategy: StrategyExact, Table: filepath.Join(t.TempDir(), "missing.json")})

	assert.Equal(t, "heuristic", sel.Counter.Name())
	assert.True(t, sel.Fallback)
	assert.Contains(t, sel.Warning, "approximate")
}

// recordingTransport fails every request and remembers its URL.
type recordingTransport struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, req.URL.String())
	return nil, fmt.Errorf("network access to %s", req.URL)
}

func TestSelect_DefaultEncodingStaysOffline(t *testing.T) {
	t.Setenv("TIKTOKEN_CACHE_DIR", t.TempDir())
	transport := &recordingTransport{}
	orig := http.DefaultTransport
	http.DefaultTransport = transport
	t.Cleanup(func() { http.DefaultTransport = orig })

	sel := Select(Options{Strategy: StrategyAuto, Encoding: DefaultEncoding})

	assert.Empty(t, transport.urls)
	assert.False(t, sel.Fallback, sel.Warning)
	assert.Equal(t, "exact:"+DefaultEncoding, sel.Counter.Name())
	assert.Equal(t, 2, sel.Counter.Count("hello world"))
}

func TestSelect_NothingConfigured(t *testing.T) {
	sel := Select(Options{})

	assert.True(t, sel.Fallback)
	assert.Contains(t, sel.Warning, "no tokenizer table")
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, s)

	s, err = ParseStrategy("exact")
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, s)

	_, err = ParseStrategy("chars")
	assert.Error(t, err)
}
