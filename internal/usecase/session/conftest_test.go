package session

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/db/sqldb"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/repository/geonames"
	"github.com/kailas-cloud/cityvec/internal/usecase/catalog"
)

// letterEmbedder encodes text as lower-case letter counts. It is deterministic and
// counts calls per method.
type letterEmbedder struct {
	embedCalls int
	batchCalls int
	batchTexts int
	batchErr   error
}

func letters(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (l *letterEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	l.embedCalls++
	return domain.EmbeddingResult{Embedding: letters(text)}, nil
}

func (l *letterEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	l.batchCalls++
	if l.batchErr != nil {
		return domain.BatchEmbeddingResult{}, l.batchErr
	}
	l.batchTexts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letters(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func cityLine(id, name, cc, a1, pop string) string {
	f := make([]string, 19)
	f[0], f[1], f[8], f[10], f[14] = id, name, cc, a1, pop
	return strings.Join(f, "\t")
}

func writeSources(t *testing.T, dir string) catalog.Paths {
	t.Helper()
	files := map[string]string{
		"countryInfo.txt": "#ISO\tISO3\tISO-Numeric\tfips\tCountry\n" +
			"RU\tRUS\t643\tRS\tRussia\n" +
			"BY\tBLR\t112\tBO\tBelarus\n" +
			"DE\tDEU\t276\tGM\tGermany\n",
		"cities15000.txt": strings.Join([]string{
			cityLine("524901", "Moscow", "RU", "48", "10381222"),
			cityLine("625144", "Minsk", "BY", "04", "1742124"),
			cityLine("463343", "Zelenograd", "RU", "48", "216000"),
			cityLine("2950159", "Berlin", "DE", "16", "3426354"),
		}, "\n") + "\n",
		"admin1CodesASCII.txt": "RU.48\tMoscow\tMoscow\t524894\n" +
			"BY.04\tMinsk City\tMinsk City\t625143\n" +
			"DE.16\tBerlin\tBerlin\t2950157\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return catalog.Paths{
		Countries:  filepath.Join(dir, "countryInfo.txt"),
		Cities:     filepath.Join(dir, "cities15000.txt"),
		AdminCodes: filepath.Join(dir, "admin1CodesASCII.txt"),
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		ModelID:      "org/Letter-Model",
		CountryCodes: []string{"RU", "BY"},
		Paths:        writeSources(t, dir),
		Store:        sqldb.Config{Driver: sqldb.DriverSQLite, Path: filepath.Join(dir, "cityvec.db")},
	}
}

// countingStore wraps a table store and records Close calls.
type countingStore struct {
	db.TableStore
	closed  int
	pingErr error
}

func (c *countingStore) Ping(ctx context.Context) error {
	if c.pingErr != nil {
		return c.pingErr
	}
	return c.TableStore.Ping(ctx)
}

func (c *countingStore) Close() error {
	c.closed++
	return c.TableStore.Close()
}

func openSession(t *testing.T, cfg Config, emb *letterEmbedder) *Session {
	t.Helper()
	s, err := Open(context.Background(), cfg, Deps{Corpus: emb, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// requireRowsEncodeNames checks that every persisted embedding row encodes the name of
// the catalog row with the same position and id.
func requireRowsEncodeNames(t *testing.T, store db.TableStore, table string) {
	t.Helper()
	ctx := context.Background()

	catTbl, err := store.ReadTable(ctx, domain.TableSelectedCities)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := geonames.Catalog.Decode(catTbl)
	if err != nil {
		t.Fatal(err)
	}
	embTbl, err := store.ReadTable(ctx, table)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := geonames.Embeddings.Decode(embTbl)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != len(entries) {
		t.Fatalf("%d embedding rows for %d catalog rows", len(rows), len(entries))
	}
	for i, e := range entries {
		if rows[i].ID != e.ID {
			t.Errorf("row %d id %d, catalog id %d", i, rows[i].ID, e.ID)
		}
		if !reflect.DeepEqual(rows[i].Vector, letters(e.NameCity)) {
			t.Errorf("row %d does not encode %q", i, e.NameCity)
		}
	}
}

func replaceInFile(t *testing.T, path, old, repl string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(string(data), old, repl)), 0o600); err != nil {
		t.Fatal(err)
	}
}
