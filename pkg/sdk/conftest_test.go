package cityvec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// letterModel encodes text as lower-case letter counts and has no batch endpoint.
type letterModel struct {
	calls int
}

func (l *letterModel) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	l.calls++
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
}

// batchLetterModel adds a native batch endpoint to letterModel.
type batchLetterModel struct {
	letterModel
	batches int
}

func (b *batchLetterModel) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	b.batches++
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		r, _ := b.letterModel.Embed(ctx, t)
		out.Embeddings[i] = r.Embedding
	}
	return out, nil
}

func cityLine(id, name, cc, a1, pop string) string {
	f := make([]string, 19)
	f[0], f[1], f[8], f[10], f[14] = id, name, cc, a1, pop
	return strings.Join(f, "\t")
}

// sources writes a three-city GeoNames fixture and returns the options pointing at it.
func sources(t *testing.T) []Option {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"countryInfo.txt": "#ISO\tISO3\tISO-Numeric\tfips\tCountry\n" +
			"RU\tRUS\t643\tRS\tRussia\n" +
			"KZ\tKAZ\t398\tKZ\tKazakhstan\n",
		"cities15000.txt": strings.Join([]string{
			cityLine("524901", "Moscow", "RU", "48", "10381222"),
			cityLine("1526384", "Almaty", "KZ", "02", "2000900"),
			cityLine("1526273", "Astana", "KZ", "05", "1136008"),
		}, "\n") + "\n",
		"admin1CodesASCII.txt": "RU.48\tMoscow\tMoscow\t524894\n" +
			"KZ.02\tAlmaty\tAlmaty\t1537162\n" +
			"KZ.05\tAstana\tAstana\t1538317\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return []Option{
		WithSQLite(filepath.Join(dir, "cityvec.db")),
		WithSources(
			filepath.Join(dir, "countryInfo.txt"),
			filepath.Join(dir, "cities15000.txt"),
			filepath.Join(dir, "admin1CodesASCII.txt"),
		),
		WithModel("org/Letter-Model"),
		WithCountries("RU", "KZ"),
	}
}

func testStart() time.Time { return time.Now() }
