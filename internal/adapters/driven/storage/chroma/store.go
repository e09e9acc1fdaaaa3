// Package chroma stores the vector index in a collection on a Chroma server.
//
// The embedding model is part of the collection name, so switching models
// selects a different collection instead of mixing vector spaces. An empty
// collection, or one holding fewer records than its build wrote, is treated
// as absent and triggers a rebuild.
package chroma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/custodia-labs/localrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/logger"
)

// Ensure interfaces are implemented.
var (
	_ driven.VectorStoreProvider = (*Provider)(nil)
	_ driven.VectorStore         = (*Store)(nil)
)

const (
	// DefaultURL is the Chroma server started by `chroma run`.
	DefaultURL = "http://localhost:8000"

	// DefaultCollection is the collection name prefix.
	DefaultCollection = "localrag"

	addBatchSize = 100

	// Reserved metadata keys.
	attrPosition   = "position"
	attrDocumentID = "document_id"
	attrChunkID    = "chunk_id"
	attrStore      = "store"
	attrTotal      = "chunk_total"
)

// Config holds configuration for the Chroma vector store.
type Config struct {
	URL        string
	Collection string
	Provider   domain.AIProvider
}

// collection is the part of chromago.Collection the store uses.
type collection interface {
	Name() string
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, opts ...chromago.CollectionAddOption) error
	Get(ctx context.Context, opts ...chromago.CollectionGetOption) (chromago.GetResult, error)
	Delete(ctx context.Context, opts ...chromago.CollectionDeleteOption) error
	Query(ctx context.Context, opts ...chromago.CollectionQueryOption) (chromago.QueryResult, error)
}

// Provider opens collections on one Chroma server.
type Provider struct {
	cfg    Config
	mu     sync.Mutex
	client chromago.Client

	// open returns the named collection, creating it if needed.
	open func(ctx context.Context, name string, fp domain.IndexFingerprint) (collection, error)
}

// NewProvider creates a provider. The HTTP client is created lazily on first use.
func NewProvider(cfg Config) *Provider {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	p := &Provider{cfg: cfg}
	p.open = p.openRemote
	return p
}

// Location returns the server URL and collection prefix.
func (p *Provider) Location() string {
	return strings.TrimRight(p.cfg.URL, "/") + "/" + p.cfg.Collection
}

func (p *Provider) connect() (chromago.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(p.cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("%w: creating chroma client: %w", domain.ErrVectorStoreUnavailable, err)
	}
	p.client = client
	return client, nil
}

func (p *Provider) collection(ctx context.Context, emb driven.EmbeddingService) (collection, error) {
	fp := memory.FingerprintOf(p.cfg.Provider, emb, 0)
	return p.open(ctx, CollectionName(p.cfg.Collection, fp.Model), fp)
}

func (p *Provider) openRemote(ctx context.Context, name string, fp domain.IndexFingerprint) (collection, error) {
	client, err := p.connect()
	if err != nil {
		return nil, err
	}

	col, err := client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("provider", string(fp.Provider)),
				chromago.NewStringAttribute("model", fp.Model),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %s: %w", domain.ErrVectorStoreUnavailable, name, err)
	}
	return col, nil
}

// Load opens the model's collection. An empty collection is reported absent.
func (p *Provider) Load(ctx context.Context, emb driven.EmbeddingService) (driven.VectorStore, bool, error) {
	if emb == nil {
		return nil, false, errors.New("load: embedding service is nil")
	}

	col, err := p.collection(ctx, emb)
	if err != nil {
		return nil, false, err
	}

	n, err := col.Count(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: counting collection: %w", domain.ErrVectorStoreUnavailable, err)
	}
	if n == 0 {
		return nil, false, nil
	}

	total, err := recordedTotal(ctx, col)
	if err != nil {
		return nil, false, err
	}
	if total != n {
		logger.Warn("Chroma collection %s holds %d of %d chunks from an unfinished build, rebuilding", col.Name(), n, total)
		return nil, false, nil
	}

	logger.Debug("Opened chroma collection %s with %d chunks", col.Name(), n)
	return p.store(col, emb, 0), true, nil
}

// Build embeds every chunk and replaces the contents of the model's collection.
func (p *Provider) Build(ctx context.Context, chunks []domain.Chunk, emb driven.EmbeddingService) (driven.VectorStore, error) {
	if emb == nil {
		return nil, errors.New("build: embedding service is nil")
	}

	vecs, err := memory.EmbedChunks(ctx, chunks, emb)
	if err != nil {
		return nil, err
	}

	col, err := p.collection(ctx, emb)
	if err != nil {
		return nil, err
	}

	n, err := col.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: counting collection: %w", domain.ErrVectorStoreUnavailable, err)
	}
	if n > 0 {
		if err := clearRecords(ctx, col); err != nil {
			return nil, fmt.Errorf("%w: clearing collection: %w", domain.ErrVectorStoreUnavailable, err)
		}
	}

	for start := 0; start < len(chunks); start += addBatchSize {
		end := min(start+addBatchSize, len(chunks))
		if err := addBatch(ctx, col, chunks[start:end], vecs[start:end], len(chunks)); err != nil {
			// Remove the batches already written so no partial index is left.
			if cerr := clearRecords(context.WithoutCancel(ctx), col); cerr != nil {
				logger.Warn("could not remove partial build from %s: %v", col.Name(), cerr)
			}
			return nil, fmt.Errorf("%w: adding chunks %d-%d: %w", domain.ErrVectorStoreUnavailable, start, end-1, err)
		}
	}

	dims := 0
	if len(vecs) > 0 {
		dims = len(vecs[0])
	}
	return p.store(col, emb, dims), nil
}

func (p *Provider) store(col collection, emb driven.EmbeddingService, dims int) *Store {
	return &Store{
		col: col,
		emb: emb,
		fp:  memory.FingerprintOf(p.cfg.Provider, emb, dims),
	}
}

// Close releases the HTTP client.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// clearRecords deletes every record written by localrag.
func clearRecords(ctx context.Context, col collection) error {
	return col.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(attrStore, DefaultCollection)))
}

// recordedTotal reads the chunk count the build stamped on every record.
// Records without it count as an unfinished build.
func recordedTotal(ctx context.Context, col collection) (int, error) {
	res, err := col.Get(ctx, chromago.WithLimitGet(1), chromago.WithIncludeGet(chromago.IncludeMetadatas))
	if err != nil {
		return 0, fmt.Errorf("%w: reading collection: %w", domain.ErrVectorStoreUnavailable, err)
	}
	metas := res.GetMetadatas()
	if len(metas) == 0 {
		return 0, nil
	}
	return intValue(metadataMap(metas[0])[attrTotal]), nil
}

func addBatch(ctx context.Context, col collection, chunks []domain.Chunk, vecs [][]float32, total int) error {
	ids := make([]chromago.DocumentID, len(chunks))
	texts := make([]string, len(chunks))
	embs := make([]embeddings.Embedding, len(chunks))
	metas := make([]chromago.DocumentMetadata, len(chunks))

	for i := range chunks {
		ids[i] = chromago.DocumentID(chunks[i].ID)
		texts[i] = chunks[i].Content
		embs[i] = embeddings.NewEmbeddingFromFloat32(vecs[i])
		metas[i] = chromago.NewDocumentMetadata(attributes(chunks[i], total)...)
	}

	return col.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
}

// attributes flattens chunk metadata into Chroma attributes, adding the
// reserved keys. Values Chroma cannot store are written as strings.
func attributes(c domain.Chunk, total int) []*chromago.MetaAttribute {
	keys := make([]string, 0, len(c.Metadata))
	for k := range c.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]*chromago.MetaAttribute, 0, len(keys)+5)
	for _, k := range keys {
		switch v := c.Metadata[k].(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(k, v))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(k, int64(v)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(k, v))
		case float64:
			attrs = append(attrs, chromago.NewFloatAttribute(k, v))
		case bool:
			attrs = append(attrs, chromago.NewBoolAttribute(k, v))
		case nil:
		default:
			attrs = append(attrs, chromago.NewStringAttribute(k, fmt.Sprint(v)))
		}
	}

	return append(attrs,
		chromago.NewIntAttribute(attrPosition, int64(c.Position)),
		chromago.NewStringAttribute(attrDocumentID, c.DocumentID),
		chromago.NewStringAttribute(attrChunkID, c.ID),
		chromago.NewStringAttribute(attrStore, DefaultCollection),
		chromago.NewIntAttribute(attrTotal, int64(total)),
	)
}

// Store is an opened Chroma collection.
type Store struct {
	col collection
	emb driven.EmbeddingService
	fp  domain.IndexFingerprint
}

// Retrieve embeds query and runs a nearest-neighbour query on the collection.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}

	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []domain.RetrievedChunk{}, nil
	}

	vec, err := s.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if s.fp.Dimensions > 0 && len(vec) != s.fp.Dimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, index has %d: %w",
			len(vec), s.fp.Dimensions, domain.ErrIndexMismatch)
	}

	res, err := s.col.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vec)),
		chromago.WithNResults(min(k, n)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %w", domain.ErrVectorStoreUnavailable, err)
	}

	docGroups := res.GetDocumentsGroups()
	if len(docGroups) == 0 {
		return []domain.RetrievedChunk{}, nil
	}
	metaGroups := res.GetMetadatasGroups()
	distGroups := res.GetDistancesGroups()

	hits := make([]hit, 0, len(docGroups[0]))
	for i, doc := range docGroups[0] {
		h := hit{content: doc.ContentString()}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) {
			h.metadata = metadataMap(metaGroups[0][i])
		}
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			h.distance = float64(distGroups[0][i])
		}
		hits = append(hits, h)
	}

	return toRetrieved(hits), nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.col.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: counting collection: %w", domain.ErrVectorStoreUnavailable, err)
	}
	return n, nil
}

// Fingerprint returns the embedding configuration of the collection.
func (s *Store) Fingerprint() domain.IndexFingerprint {
	return s.fp
}

// Close is a no-op; the provider owns the client.
func (s *Store) Close() error {
	return nil
}

// hit is one query result before conversion.
type hit struct {
	content  string
	metadata map[string]any
	distance float64
}

// toRetrieved converts cosine distances to similarities and orders the hits
// by descending similarity then ascending position.
func toRetrieved(hits []hit) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		meta := h.metadata
		if meta == nil {
			meta = make(map[string]any)
		}

		c := domain.Chunk{
			Content:  h.content,
			Position: intValue(meta[attrPosition]),
			Metadata: make(map[string]any, len(meta)),
		}
		c.ID, _ = meta[attrChunkID].(string)
		c.DocumentID, _ = meta[attrDocumentID].(string)
		for k, v := range meta {
			switch k {
			case attrPosition, attrChunkID, attrDocumentID, attrStore, attrTotal:
			default:
				c.Metadata[k] = v
			}
		}

		out = append(out, domain.RetrievedChunk{Chunk: c, Similarity: 1 - h.distance})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Chunk.Position < out[j].Chunk.Position
	})
	return out
}

// metadataMap converts Chroma document metadata to a plain map.
// DocumentMetadata has no accessor for all values, so it goes through JSON.
func metadataMap(m chromago.DocumentMetadata) map[string]any {
	out := make(map[string]any)
	if m == nil {
		return out
	}
	raw, err := json.Marshal(m)
	if err != nil {
		logger.Warn("could not marshal chroma metadata: %v", err)
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn("could not unmarshal chroma metadata: %v", err)
		return make(map[string]any)
	}
	return out
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// CollectionName derives a valid Chroma collection name from a prefix and
// an embedding model, e.g. "localrag-nomic-embed-text".
func CollectionName(prefix, model string) string {
	name := prefix
	if m := strings.Trim(invalidNameChars.ReplaceAllString(model, "-"), "-_"); m != "" {
		name += "-" + m
	}
	name = strings.Trim(name, "-_")

	// Chroma requires 3 to 512 characters starting and ending alphanumeric.
	for len(name) < 3 {
		name += "0"
	}
	if len(name) > 512 {
		name = strings.TrimRight(name[:512], "-_")
	}
	return name
}
