// Package kb is the knowledgebase: indexed web content with vector search
// over Postgres and pgvector.
package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openai/openai-go/v3"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"github.com/zzstoatzz/slackbot/internal/crypto"
)

const (
	embeddingModel = openai.EmbeddingModelTextEmbedding3Small

	// topK is how many excerpts a query returns to the model.
	topK = 5
)

// Store indexes documents and answers similarity queries. Namespaces keep
// multiple bots on one database from seeing each other's documents.
type Store struct {
	pool      *pgxpool.Pool
	client    openai.Client
	namespace string
	logger    zerolog.Logger
}

// New ensures the schema exists and returns a Store sharing the given pool.
func New(ctx context.Context, pool *pgxpool.Pool, client openai.Client, namespace string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		pool:      pool,
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("init knowledgebase schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kb_documents (
			id         UUID PRIMARY KEY,
			namespace  TEXT NOT NULL,
			source_url TEXT NOT NULL,
			content    TEXT NOT NULL,
			embedding  VECTOR(1536) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS kb_documents_namespace_idx
		ON kb_documents (namespace)
	`)
	return err
}

// Add chunks a document, embeds each chunk, and stores them under the
// source URL. Returns the number of chunks written.
func (s *Store) Add(ctx context.Context, sourceURL, content string) (int, error) {
	chunks := chunkText(content, chunkSize)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed document %s: %w", sourceURL, err)
	}

	for i, chunk := range chunks {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO kb_documents (id, namespace, source_url, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
		`, crypto.NewUUIDv7(), s.namespace, sourceURL, chunk, pgvector.NewVector(vectors[i]))
		if err != nil {
			return 0, fmt.Errorf("insert chunk %d of %s: %w", i, sourceURL, err)
		}
	}
	return len(chunks), nil
}

// Query embeds the query and returns the closest excerpts by cosine
// distance, formatted for the model.
func (s *Store) Query(ctx context.Context, query string) (string, error) {
	vectors, err := s.embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT source_url, content
		FROM kb_documents
		WHERE namespace = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, s.namespace, pgvector.NewVector(vectors[0]), topK)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	n := 0
	for rows.Next() {
		var sourceURL, content string
		if err := rows.Scan(&sourceURL, &content); err != nil {
			return "", err
		}
		n++
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", n, sourceURL, content)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if n == 0 {
		return "no relevant documents found", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// AddSitemap fetches a sitemap, indexes every page it lists, and returns
// the number of pages indexed. Pages that fail to fetch are skipped with a
// warning so one dead link does not abort the whole ingest.
func (s *Store) AddSitemap(ctx context.Context, sitemapURL string) (int, error) {
	urls, err := fetchSitemap(ctx, sitemapURL)
	if err != nil {
		return 0, fmt.Errorf("fetch sitemap %s: %w", sitemapURL, err)
	}
	if len(urls) == 0 {
		return 0, fmt.Errorf("sitemap %s lists no pages", sitemapURL)
	}

	indexed := 0
	for _, pageURL := range urls {
		text, err := fetchPageText(ctx, pageURL)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", pageURL).Msg("skipping page")
			continue
		}
		if _, err := s.Add(ctx, pageURL, text); err != nil {
			return indexed, err
		}
		indexed++
		s.logger.Debug().Str("url", pageURL).Msg("indexed page")
	}
	return indexed, nil
}

// embed returns one vector per input text, in order.
func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: embeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
