package describer

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"ProjectZukan/pkg/redis"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Setenv("LOG_LEVEL", "error")
	os.Exit(m.Run())
}

type fakeAnalyzer struct {
	answer   string
	err      error
	prompts  []string
	mimeType string
	calls    int
}

func (f *fakeAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	f.calls++
	f.mimeType = mimeType
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeAnalyzer) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeAnalyzer) Close() {}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", redis.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *memoryCache) Close() error { return nil }

var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestLocal_IsDeterministic(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	first, err := l.Describe(ctx, "Dog", "park", nil)
	require.NoError(t, err)
	second, err := l.Describe(ctx, "dog", "garden", jpegHeader)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, SourceLocal, l.Source())
}

func TestLocal_UnknownLabelNamesTheObject(t *testing.T) {
	text, err := NewLocal().Describe(context.Background(), "sparrow", "garden", nil)
	require.NoError(t, err)
	require.Contains(t, text, "sparrow")
}

func TestNew_MissingKeyFallsBackToLocal(t *testing.T) {
	require.Equal(t, SourceLocal, New(Options{Kind: KindOpenAI}).Source())
	require.Equal(t, SourceLocal, New(Options{Kind: KindGemini}).Source())
	require.Equal(t, SourceLocal, New(Options{Kind: KindLocal, OpenAIKey: "sk-test"}).Source())
	require.Equal(t, SourceLocal, New(Options{Kind: "unknown"}).Source())
}

func TestNew_OpenAIWithKeyIsHosted(t *testing.T) {
	d := New(Options{Kind: KindOpenAI, OpenAIKey: "sk-test"})
	require.Equal(t, SourceLLM, d.Source())

	_, ok := d.(ISuggester)
	require.True(t, ok)
}

func TestHosted_Describe(t *testing.T) {
	analyzer := &fakeAnalyzer{answer: "  「ちいさな茶色い鳥だよ」 "}
	h := NewHosted(analyzer, KindOpenAI, "Japanese")

	text, err := h.Describe(context.Background(), "sparrow", "garden", jpegHeader)
	require.NoError(t, err)
	require.Equal(t, "ちいさな茶色い鳥だよ", text)
	require.Equal(t, "image/jpeg", analyzer.mimeType)
	require.Contains(t, analyzer.prompts[0], "sparrow")
	require.Contains(t, analyzer.prompts[0], "garden")
	require.Contains(t, analyzer.prompts[0], "Japanese")
}

func TestHosted_DescribeNormalizesCRLF(t *testing.T) {
	analyzer := &fakeAnalyzer{answer: "すずめだよ。\r\nにわにいるよ。\r\n"}
	h := NewHosted(analyzer, KindOpenAI, "Japanese")

	text, err := h.Describe(context.Background(), "sparrow", "garden", jpegHeader)
	require.NoError(t, err)
	require.Equal(t, "すずめだよ。\nにわにいるよ。", text)
}

func TestHosted_FailuresAreGenerationErrors(t *testing.T) {
	tests := []struct {
		name     string
		analyzer *fakeAnalyzer
	}{
		{name: "network", analyzer: &fakeAnalyzer{err: errors.New("dial tcp: timeout")}},
		{name: "empty answer", analyzer: &fakeAnalyzer{answer: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHosted(tt.analyzer, KindGemini, "").Describe(context.Background(), "cup", "kitchen", jpegHeader)
			require.ErrorIs(t, err, ErrGeneration)
		})
	}
}

func TestHosted_Suggest(t *testing.T) {
	answer := "```json\n" + `{"place":"上野動物園","encyclopedia":[` +
		`{"name":"パンダ","text":"白と黒のからだ"},` +
		`{"name":"ゾウ","text":"長い鼻"},` +
		`{"name":"","text":"skipped"},` +
		`{"name":"キリン","text":"長い首"}]}` + "\n```"
	analyzer := &fakeAnalyzer{answer: answer}
	h := NewHosted(analyzer, KindOpenAI, "Japanese")

	got, err := h.Suggest(context.Background(), "上野動物園", 2)
	require.NoError(t, err)
	require.Equal(t, []Suggestion{{Name: "パンダ", Text: "白と黒のからだ"}, {Name: "ゾウ", Text: "長い鼻"}}, got)
	require.True(t, strings.Contains(analyzer.prompts[0], "上野動物園"))
}

func TestHosted_SuggestInvalidJSON(t *testing.T) {
	h := NewHosted(&fakeAnalyzer{answer: "sorry, I cannot browse"}, KindOpenAI, "")

	_, err := h.Suggest(context.Background(), "zoo", 8)
	require.ErrorIs(t, err, ErrGeneration)
}

func TestCached_UsesCacheAfterFirstCall(t *testing.T) {
	analyzer := &fakeAnalyzer{answer: "a small bird"}
	cache := newMemoryCache()
	c := NewCached(NewHosted(analyzer, KindOpenAI, ""), cache, time.Hour)

	for i := 0; i < 3; i++ {
		text, err := c.Describe(context.Background(), "Sparrow", "Garden", jpegHeader)
		require.NoError(t, err)
		require.Equal(t, "a small bird", text)
	}
	require.Equal(t, 1, analyzer.calls)
	require.Equal(t, "a small bird", cache.values["zukan:description:garden:sparrow"])
	require.Equal(t, SourceLLM, c.Source())
}

func TestCached_CacheFailuresAreIgnored(t *testing.T) {
	analyzer := &fakeAnalyzer{answer: "a red cup"}
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	c := NewCached(NewHosted(analyzer, KindOpenAI, ""), cache, 0)

	text, err := c.Describe(context.Background(), "cup", "kitchen", jpegHeader)
	require.NoError(t, err)
	require.Equal(t, "a red cup", text)
}

func TestCached_GenerationErrorIsNotCached(t *testing.T) {
	cache := newMemoryCache()
	c := NewCached(NewHosted(&fakeAnalyzer{err: errors.New("quota")}, KindOpenAI, ""), cache, time.Hour)

	_, err := c.Describe(context.Background(), "cup", "kitchen", jpegHeader)
	require.ErrorIs(t, err, ErrGeneration)
	require.Empty(t, cache.values)
}

func TestCached_SuggestRequiresHostedStrategy(t *testing.T) {
	c := NewCached(NewLocal(), newMemoryCache(), time.Hour)

	_, err := c.Suggest(context.Background(), "zoo", 8)
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestFallback(t *testing.T) {
	text := Fallback("dog", 0.5, 30, 20, "timeout")
	require.Contains(t, text, "dog（信頼度50.0%）が映っています。")
	require.Contains(t, text, "30×20")
	require.Contains(t, text, "詳細: timeout")

	text = Fallback("", -1, 0, 0, "")
	require.True(t, strings.HasPrefix(text, "不明な物体が映っています。"))
	require.NotContains(t, text, "信頼度")
	require.NotContains(t, text, "詳細")
}
