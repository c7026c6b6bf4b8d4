// Package index implements the semantic codebase index behind queryIndex:
// line-window chunking, Gemini embeddings, and ANN search over sqlite-vec.
// The index is a per-project singleton, safe for concurrent use across
// tasks.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"codescout/internal/embedding"
	"codescout/internal/logging"
)

// ErrNoIndex is returned by Query when no index has been built yet.
var ErrNoIndex = errors.New("no index exists for this project; run 'scout index' first")

const (
	chunkLines   = 60
	chunkOverlap = 10
	embedBatch   = 32
	embedWorkers = 4
)

// Chunk is one indexed window of a source file.
type Chunk struct {
	Path      string
	StartLine int
	EndLine   int
	Content   string
}

// Index stores and searches code chunks.
type Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	engine embedding.Engine // nil means keyword-only search
	stale  atomic.Bool
}

// Open opens (or creates) the index database at path. engine may be nil,
// in which case queries fall back to keyword matching.
func Open(path string, engine embedding.Engine) (*Index, error) {
	db, err := openStore(path)
	if err != nil {
		return nil, err
	}
	logging.Index("index opened at %s (vec=%v, engine=%v)", path, vecAvailable, engineName(engine))
	return &Index{db: db, engine: engine}, nil
}

func engineName(e embedding.Engine) string {
	if e == nil {
		return "none"
	}
	return e.Name()
}

// Close releases the underlying database.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.db.Close()
}

// MarkStale flags the index as out of date. Set by the filesystem watcher;
// query results carry a staleness note until the next Build.
func (ix *Index) MarkStale() { ix.stale.Store(true) }

// Build (re)indexes the given files, replacing any previous contents.
// Embedding runs in parallel batches; chunk order within the store is not
// significant.
func (ix *Index) Build(ctx context.Context, files map[string]string) (int, error) {
	start := time.Now()

	var chunks []Chunk
	for path, content := range files {
		chunks = append(chunks, chunkFile(path, content)...)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Path != chunks[j].Path {
			return chunks[i].Path < chunks[j].Path
		}
		return chunks[i].StartLine < chunks[j].StartLine
	})

	vectors := make([][]float32, len(chunks))
	if ix.engine != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(embedWorkers)
		for lo := 0; lo < len(chunks); lo += embedBatch {
			lo, hi := lo, min(lo+embedBatch, len(chunks))
			g.Go(func() error {
				texts := make([]string, hi-lo)
				for i := lo; i < hi; i++ {
					texts[i-lo] = chunks[i].Path + "\n" + chunks[i].Content
				}
				embs, err := ix.engine.EmbedBatch(gctx, texts)
				if err != nil {
					return fmt.Errorf("embedding batch %d..%d: %w", lo, hi, err)
				}
				copy(vectors[lo:hi], embs)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return 0, fmt.Errorf("failed to clear previous index: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO chunks (path, start_line, end_line, content, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		var blob []byte
		if vectors[i] != nil {
			blob = encodeVector(vectors[i])
		}
		if _, err := stmt.Exec(chunk.Path, chunk.StartLine, chunk.EndLine, chunk.Content, blob); err != nil {
			return 0, fmt.Errorf("failed to store chunk %s:%d: %w", chunk.Path, chunk.StartLine, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('built_at', ?)", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("failed to record build time: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit index: %w", err)
	}

	ix.stale.Store(false)
	logging.Index("indexed %d chunk(s) from %d file(s) in %v", len(chunks), len(files), time.Since(start))
	return len(chunks), nil
}

// Query returns a formatted retrieved-context string for the topK closest
// chunks. Errors if no index has been built yet.
func (ix *Index) Query(ctx context.Context, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = 5
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var count int
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return "", fmt.Errorf("index query failed: %w", err)
	}
	if count == 0 {
		return "", ErrNoIndex
	}

	var results []scoredChunk
	var err error
	if ix.engine != nil && vecAvailable {
		results, err = ix.vectorSearch(ctx, query, topK)
	} else {
		results, err = ix.keywordSearch(ctx, query, topK)
	}
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant chunks found for the query.", nil
	}

	var sb strings.Builder
	if ix.stale.Load() {
		sb.WriteString("(note: files changed since the last index build; results may be stale)\n\n")
	}
	for _, r := range results {
		fmt.Fprintf(&sb, "## %s:%d-%d (score %.2f)\n%s\n\n", r.chunk.Path, r.chunk.StartLine, r.chunk.EndLine, r.score, r.chunk.Content)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

type scoredChunk struct {
	chunk Chunk
	score float64
}

func (ix *Index) vectorSearch(ctx context.Context, query string, topK int) ([]scoredChunk, error) {
	qvec, err := ix.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT path, start_line, end_line, content,
		       vec_distance_cosine(embedding, ?) AS distance
		FROM chunks
		WHERE embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?`, encodeVector(qvec), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []scoredChunk
	for rows.Next() {
		var c Chunk
		var distance float64
		if err := rows.Scan(&c.Path, &c.StartLine, &c.EndLine, &c.Content, &distance); err != nil {
			logging.Get(logging.CategoryIndex).Warnf("failed to scan chunk row: %v", err)
			continue
		}
		// Cosine distance is 1 - similarity.
		results = append(results, scoredChunk{chunk: c, score: 1.0 - distance})
	}
	return results, rows.Err()
}

// keywordSearch is the degraded path when no embedder or vec extension is
// available: rank by how many query keywords a chunk contains.
func (ix *Index) keywordSearch(ctx context.Context, query string, topK int) ([]scoredChunk, error) {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []any
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(content) LIKE ?")
		args = append(args, "%"+kw+"%")
	}

	rows, err := ix.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT path, start_line, end_line, content FROM chunks WHERE %s LIMIT 200",
		strings.Join(conditions, " OR ")), args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var results []scoredChunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.Path, &c.StartLine, &c.EndLine, &c.Content); err != nil {
			continue
		}
		lower := strings.ToLower(c.Content)
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		results = append(results, scoredChunk{chunk: c, score: float64(hits) / float64(len(keywords))})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// chunkFile splits content into overlapping line windows.
func chunkFile(path, content string) []Chunk {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return nil
	}

	var chunks []Chunk
	step := chunkLines - chunkOverlap
	for start := 0; start < len(lines); start += step {
		end := min(start+chunkLines, len(lines))
		text := strings.TrimRight(strings.Join(lines[start:end], "\n"), "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{
				Path:      path,
				StartLine: start + 1,
				EndLine:   end,
				Content:   text,
			})
		}
		if end == len(lines) {
			break
		}
	}
	return chunks
}
