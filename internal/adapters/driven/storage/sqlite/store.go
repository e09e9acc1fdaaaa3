package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/localrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/localrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/localrag/internal/core/domain"
	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/logger"
)

// Ensure interfaces are implemented.
var (
	_ driven.VectorStoreProvider = (*Provider)(nil)
	_ driven.VectorStore         = (*Store)(nil)
)

// DefaultFileName is the index file created inside the persist directory.
const DefaultFileName = "index.db"

// index_meta keys.
const (
	metaProvider   = "provider"
	metaModel      = "model"
	metaDimensions = "dimensions"
	metaChunkCount = "chunk_count"
	metaCreatedAt  = "created_at"
)

// Provider loads or builds the SQLite index file in a directory.
type Provider struct {
	dir      string
	provider domain.AIProvider
}

// NewProvider creates a provider for dir. provider is recorded in the
// index fingerprint alongside the embedding model name.
func NewProvider(dir string, provider domain.AIProvider) *Provider {
	return &Provider{dir: dir, provider: provider}
}

// Location returns the index file path.
func (p *Provider) Location() string {
	return filepath.Join(p.dir, DefaultFileName)
}

// Load opens the index file if it exists.
func (p *Provider) Load(ctx context.Context, emb driven.EmbeddingService) (driven.VectorStore, bool, error) {
	if emb == nil {
		return nil, false, errors.New("load: embedding service is nil")
	}

	path := p.Location()
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("checking index file: %w", err)
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("index path %s is a directory: %w", path, domain.ErrInvalidInput)
	}

	db, err := open(path)
	if err != nil {
		return nil, false, err
	}

	store, err := p.load(ctx, db, emb)
	if err != nil {
		db.Close()
		return nil, false, err
	}
	return store, true, nil
}

func (p *Provider) load(ctx context.Context, db *sql.DB, emb driven.EmbeddingService) (*Store, error) {
	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, err
	}

	stored, err := fingerprintFromMeta(meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrVectorStoreUnavailable, p.Location(), err)
	}
	if err := memory.CheckFingerprint(stored, memory.FingerprintOf(p.provider, emb, 0), p.Location()); err != nil {
		return nil, err
	}

	index := memory.NewIndex(stored.Dimensions)
	if err := loadChunks(ctx, db, index); err != nil {
		return nil, err
	}

	logger.Debug("Loaded %d chunks from %s", index.Len(), p.Location())

	return &Store{
		VectorStore: memory.NewVectorStore(index, emb, stored),
		db:          db,
		path:        p.Location(),
	}, nil
}

// Build embeds every chunk, writes them to a temporary file and renames it
// over the index path. Nothing is left behind when any step fails.
func (p *Provider) Build(ctx context.Context, chunks []domain.Chunk, emb driven.EmbeddingService) (driven.VectorStore, error) {
	if emb == nil {
		return nil, errors.New("build: embedding service is nil")
	}

	// Embed before touching disk so a model failure leaves no file.
	vecs, err := memory.EmbedChunks(ctx, chunks, emb)
	if err != nil {
		return nil, err
	}

	index := memory.NewIndex(0)
	for i := range chunks {
		if err := index.Add(chunks[i], vecs[i]); err != nil {
			return nil, err
		}
	}
	fp := memory.FingerprintOf(p.provider, emb, index.Dimensions())

	if err := os.MkdirAll(p.dir, 0700); err != nil {
		return nil, fmt.Errorf("creating persist directory: %w", err)
	}

	path := p.Location()
	tmp := path + ".building"
	removeDB(tmp)

	if err := writeIndex(ctx, tmp, chunks, vecs, fp); err != nil {
		removeDB(tmp)
		return nil, err
	}

	if err := os.Rename(tmp, path); err != nil {
		removeDB(tmp)
		return nil, fmt.Errorf("moving index into place: %w", err)
	}

	db, err := open(path)
	if err != nil {
		return nil, err
	}

	return &Store{
		VectorStore: memory.NewVectorStore(index, emb, fp),
		db:          db,
		path:        path,
	}, nil
}

// Store is an opened index file. Retrieval is served from memory.
type Store struct {
	*memory.VectorStore
	db   *sql.DB
	path string
}

// Count returns the number of chunk rows in the file.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// open opens an index file and applies pending migrations.
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func writeIndex(ctx context.Context, path string, chunks []domain.Chunk, vecs [][]float32, fp domain.IndexFingerprint) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (position, id, document_id, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for chunk %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.Position, c.ID, c.DocumentID, c.Content,
			string(metaJSON), float32SliceToBytes(vecs[i])); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.Position, err)
		}
	}

	meta := map[string]string{
		metaProvider:   string(fp.Provider),
		metaModel:      fp.Model,
		metaDimensions: strconv.Itoa(fp.Dimensions),
		metaChunkCount: strconv.Itoa(len(chunks)),
		metaCreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("writing index metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning index metadata: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func fingerprintFromMeta(meta map[string]string) (domain.IndexFingerprint, error) {
	model, ok := meta[metaModel]
	if !ok || model == "" {
		return domain.IndexFingerprint{}, errors.New("index metadata has no embedding model")
	}

	var dims int
	if s := meta[metaDimensions]; s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return domain.IndexFingerprint{}, fmt.Errorf("invalid dimensions %q: %w", s, err)
		}
		dims = n
	}

	return domain.IndexFingerprint{
		Provider:   domain.AIProvider(meta[metaProvider]),
		Model:      model,
		Dimensions: dims,
	}, nil
}

func loadChunks(ctx context.Context, db *sql.DB, index *memory.Index) error {
	rows, err := db.QueryContext(ctx, `
		SELECT position, id, document_id, content, metadata, embedding
		FROM chunks ORDER BY position
	`)
	if err != nil {
		return fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Chunk
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&c.Position, &c.ID, &c.DocumentID, &c.Content, &metaJSON, &blob); err != nil {
			return fmt.Errorf("scanning chunk: %w", err)
		}
		if metaJSON != "" && metaJSON != jsonNull {
			if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
				return fmt.Errorf("unmarshalling metadata for chunk %s: %w", c.ID, err)
			}
		}
		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		if err := index.Add(c, bytesToFloat32Slice(blob)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// removeDB deletes a database file and its journal siblings.
func removeDB(path string) {
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// migrate runs all pending migrations.
func migrate(db *sql.DB, fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_vector_store.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes encodes a vector as little-endian float32s.
func float32SliceToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes a little-endian float32 vector.
func bytesToFloat32Slice(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
