// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

// KeyPair is a named Freenet/Hyphanet key pair persisted by a
// KeyStoreInterface, as returned by GenerateSSK.
type KeyPair struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"` // SSK, USK
	PublicKey  string            `json:"public_key"`
	PrivateKey string            `json:"private_key,omitempty"`
	Created    time.Time         `json:"created"`
	Modified   time.Time         `json:"modified"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// KeyStoreInterface is the persistence contract GenerateSSK and the key
// management commands in cmd/fcpkey depend on. Two implementations are
// provided: KeyStore (a JSON file, for single-process CLI use) and
// SQLiteKeyStore (for concurrent or long-lived daemon use).
type KeyStoreInterface interface {
	Add(name string, keyPair *KeyPair) error
	Get(name string) (*KeyPair, error)
	Update(name string, keyPair *KeyPair) error
	Delete(name string) error
	List() ([]string, error)
	ListAll() ([]*KeyPair, error)
}

// KeyStore is a KeyStoreInterface backed by a single JSON file, rewritten
// in full on every mutation. Safe for concurrent use by goroutines within
// one process; not safe for concurrent use by two processes against the
// same path.
type KeyStore struct {
	path string
	keys map[string]*KeyPair
	mu   sync.RWMutex
}

// NewKeyStore opens or creates the JSON key store at path. An empty path
// defaults to ~/.gohyphanet/keys.json.
func NewKeyStore(path string) (*KeyStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolve home directory")
		}
		path = filepath.Join(home, ".gohyphanet", "keys.json")
	}

	ks := &KeyStore{
		path: path,
		keys: make(map[string]*KeyPair),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "create key store directory")
	}

	if _, err := os.Stat(path); err == nil {
		if err := ks.load(); err != nil {
			return nil, err
		}
	}

	return ks, nil
}

func (ks *KeyStore) load() error {
	data, err := os.ReadFile(ks.path)
	if err != nil {
		return errors.Wrap(err, "read key store")
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &ks.keys); err != nil {
		return errors.Wrap(err, "parse key store")
	}
	return nil
}

// save rewrites the store via a temp file + rename so a crash mid-write
// can never leave keys.json truncated.
func (ks *KeyStore) save() error {
	data, err := json.MarshalIndent(ks.keys, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal key store")
	}

	tmpPath := ks.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return errors.Wrap(err, "write key store temp file")
	}
	if err := os.Rename(tmpPath, ks.path); err != nil {
		return errors.Wrap(err, "rename key store into place")
	}
	return nil
}

func (ks *KeyStore) Add(name string, keyPair *KeyPair) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, exists := ks.keys[name]; exists {
		return &KeyExistsError{Name: name}
	}

	keyPair.Name = name
	keyPair.Created = time.Now()
	keyPair.Modified = keyPair.Created
	ks.keys[name] = keyPair
	return ks.save()
}

func (ks *KeyStore) Get(name string) (*KeyPair, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	keyPair, exists := ks.keys[name]
	if !exists {
		return nil, &KeyNotFoundError{Name: name}
	}
	return keyPair, nil
}

func (ks *KeyStore) Update(name string, keyPair *KeyPair) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, exists := ks.keys[name]; !exists {
		return &KeyNotFoundError{Name: name}
	}

	keyPair.Name = name
	keyPair.Modified = time.Now()
	ks.keys[name] = keyPair
	return ks.save()
}

func (ks *KeyStore) Delete(name string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, exists := ks.keys[name]; !exists {
		return &KeyNotFoundError{Name: name}
	}

	delete(ks.keys, name)
	return ks.save()
}

func (ks *KeyStore) List() ([]string, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	names := make([]string, 0, len(ks.keys))
	for name := range ks.keys {
		names = append(names, name)
	}
	return names, nil
}

func (ks *KeyStore) ListAll() ([]*KeyPair, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	pairs := make([]*KeyPair, 0, len(ks.keys))
	for _, kp := range ks.keys {
		pairs = append(pairs, kp)
	}
	return pairs, nil
}

// SQLiteKeyStore is a KeyStoreInterface backed by a SQLite database via
// go-sqlite3, for callers that need concurrent access from multiple
// processes or want key lookup by type/search term (see Search).
type SQLiteKeyStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteKeyStore opens or creates the database at path, running
// initSchema and enabling WAL mode so readers don't block the writer. An
// empty path defaults to ./keys.db.
func NewSQLiteKeyStore(path string) (*SQLiteKeyStore, error) {
	if path == "" {
		path = "keys.db"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.Wrap(err, "create key store directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite key store")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}

	ks := &SQLiteKeyStore{db: db, path: path}
	if err := ks.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return ks, nil
}

const sqliteKeyStoreSchema = `
CREATE TABLE IF NOT EXISTS keys (
	name TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	public_key TEXT NOT NULL,
	private_key TEXT,
	created_at TIMESTAMP NOT NULL,
	modified_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS key_metadata (
	key_name TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key_name, key),
	FOREIGN KEY (key_name) REFERENCES keys(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_keys_type ON keys(type);
CREATE INDEX IF NOT EXISTS idx_keys_created ON keys(created_at);
CREATE INDEX IF NOT EXISTS idx_metadata_key ON key_metadata(key);
`

func (ks *SQLiteKeyStore) initSchema() error {
	if _, err := ks.db.Exec(sqliteKeyStoreSchema); err != nil {
		return errors.Wrap(err, "create key store schema")
	}
	return nil
}

// replaceMetadata deletes tx's current metadata rows for name and inserts
// keyPair's, within the same transaction as the key row write. Shared by
// Add, Update, and Import so the delete-then-reinsert pattern lives in one
// place.
func replaceMetadata(tx *sql.Tx, name string, metadata map[string]string) error {
	if _, err := tx.Exec(`DELETE FROM key_metadata WHERE key_name = ?`, name); err != nil {
		return errors.Wrapf(err, "delete metadata for %s", name)
	}
	for k, v := range metadata {
		if _, err := tx.Exec(`
			INSERT INTO key_metadata (key_name, key, value) VALUES (?, ?, ?)
		`, name, k, v); err != nil {
			return errors.Wrapf(err, "insert metadata for %s", name)
		}
	}
	return nil
}

func (ks *SQLiteKeyStore) Add(name string, keyPair *KeyPair) error {
	tx, err := ks.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin add transaction")
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM keys WHERE name = ?`, name).Scan(&existing); err != nil {
		return errors.Wrap(err, "check existing key")
	}
	if existing > 0 {
		return &KeyExistsError{Name: name}
	}

	now := time.Now()
	if _, err := tx.Exec(`
		INSERT INTO keys (name, type, public_key, private_key, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, name, keyPair.Type, keyPair.PublicKey, keyPair.PrivateKey, now, now); err != nil {
		return errors.Wrap(err, "insert key")
	}

	if err := replaceMetadata(tx, name, keyPair.Metadata); err != nil {
		return err
	}

	return tx.Commit()
}

func (ks *SQLiteKeyStore) Get(name string) (*KeyPair, error) {
	keyPair := &KeyPair{Name: name, Metadata: make(map[string]string)}

	err := ks.db.QueryRow(`
		SELECT type, public_key, private_key, created_at, modified_at
		FROM keys WHERE name = ?
	`, name).Scan(&keyPair.Type, &keyPair.PublicKey, &keyPair.PrivateKey,
		&keyPair.Created, &keyPair.Modified)
	if err == sql.ErrNoRows {
		return nil, &KeyNotFoundError{Name: name}
	}
	if err != nil {
		return nil, errors.Wrap(err, "query key")
	}

	rows, err := ks.db.Query(`SELECT key, value FROM key_metadata WHERE key_name = ?`, name)
	if err != nil {
		return nil, errors.Wrap(err, "query metadata")
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(err, "scan metadata row")
		}
		keyPair.Metadata[k] = v
	}
	return keyPair, rows.Err()
}

func (ks *SQLiteKeyStore) Update(name string, keyPair *KeyPair) error {
	tx, err := ks.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin update transaction")
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE keys SET type = ?, public_key = ?, private_key = ?, modified_at = ?
		WHERE name = ?
	`, keyPair.Type, keyPair.PublicKey, keyPair.PrivateKey, time.Now(), name)
	if err != nil {
		return errors.Wrap(err, "update key")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &KeyNotFoundError{Name: name}
	}

	if err := replaceMetadata(tx, name, keyPair.Metadata); err != nil {
		return err
	}

	return tx.Commit()
}

func (ks *SQLiteKeyStore) Delete(name string) error {
	result, err := ks.db.Exec(`DELETE FROM keys WHERE name = ?`, name)
	if err != nil {
		return errors.Wrap(err, "delete key")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &KeyNotFoundError{Name: name}
	}
	return nil
}

func (ks *SQLiteKeyStore) List() ([]string, error) {
	rows, err := ks.db.Query(`SELECT name FROM keys ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "query key names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan key name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (ks *SQLiteKeyStore) ListAll() ([]*KeyPair, error) {
	rows, err := ks.db.Query(`
		SELECT name, type, public_key, private_key, created_at, modified_at
		FROM keys ORDER BY name
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query keys")
	}
	defer rows.Close()

	var pairs []*KeyPair
	for rows.Next() {
		kp := &KeyPair{Metadata: make(map[string]string)}
		if err := rows.Scan(&kp.Name, &kp.Type, &kp.PublicKey, &kp.PrivateKey,
			&kp.Created, &kp.Modified); err != nil {
			return nil, errors.Wrap(err, "scan key row")
		}

		metaRows, err := ks.db.Query(`SELECT key, value FROM key_metadata WHERE key_name = ?`, kp.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "query metadata for %s", kp.Name)
		}
		for metaRows.Next() {
			var k, v string
			if err := metaRows.Scan(&k, &v); err != nil {
				metaRows.Close()
				return nil, errors.Wrap(err, "scan metadata row")
			}
			kp.Metadata[k] = v
		}
		metaRows.Close()

		pairs = append(pairs, kp)
	}
	return pairs, rows.Err()
}

// Search filters ListAll's set by key type and a LIKE pattern over name
// and public key. Unlike ListAll, it
// does not populate Metadata.
func (ks *SQLiteKeyStore) Search(keyType, searchTerm string) ([]*KeyPair, error) {
	query := `
		SELECT name, type, public_key, private_key, created_at, modified_at
		FROM keys WHERE 1=1
	`
	var args []interface{}

	if keyType != "" {
		query += " AND type = ?"
		args = append(args, keyType)
	}
	if searchTerm != "" {
		query += " AND (name LIKE ? OR public_key LIKE ?)"
		pattern := "%" + searchTerm + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY name"

	rows, err := ks.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "search keys")
	}
	defer rows.Close()

	var pairs []*KeyPair
	for rows.Next() {
		kp := &KeyPair{Metadata: make(map[string]string)}
		if err := rows.Scan(&kp.Name, &kp.Type, &kp.PublicKey, &kp.PrivateKey,
			&kp.Created, &kp.Modified); err != nil {
			return nil, errors.Wrap(err, "scan key row")
		}
		pairs = append(pairs, kp)
	}
	return pairs, rows.Err()
}

// Close closes the underlying database handle.
func (ks *SQLiteKeyStore) Close() error { return ks.db.Close() }

// Export serializes every stored key pair to the same JSON shape KeyStore
// keeps on disk, for migrating between the two backends.
func (ks *SQLiteKeyStore) Export() ([]byte, error) {
	pairs, err := ks.ListAll()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal exported keys")
	}
	return data, nil
}

// Import loads key pairs serialized by Export (or a KeyStore's JSON file)
// into the database, upserting each by name within a single transaction.
func (ks *SQLiteKeyStore) Import(data []byte) error {
	var pairs []*KeyPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return errors.Wrap(err, "unmarshal imported keys")
	}

	tx, err := ks.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin import transaction")
	}
	defer tx.Rollback()

	for _, kp := range pairs {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO keys (name, type, public_key, private_key, created_at, modified_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, kp.Name, kp.Type, kp.PublicKey, kp.PrivateKey, kp.Created, kp.Modified); err != nil {
			return errors.Wrapf(err, "insert imported key %s", kp.Name)
		}
		if err := replaceMetadata(tx, kp.Name, kp.Metadata); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// KeyStoreStats summarizes a SQLiteKeyStore's contents, as reported by
// GetStats.
type KeyStoreStats struct {
	TotalKeys   int
	ByType      map[string]int
	DBSizeBytes int64
}

// GetStats reports key counts by type and the database's on-disk size.
func (ks *SQLiteKeyStore) GetStats() (*KeyStoreStats, error) {
	stats := &KeyStoreStats{ByType: make(map[string]int)}

	if err := ks.db.QueryRow(`SELECT COUNT(*) FROM keys`).Scan(&stats.TotalKeys); err != nil {
		return nil, errors.Wrap(err, "count keys")
	}

	rows, err := ks.db.Query(`SELECT type, COUNT(*) FROM keys GROUP BY type`)
	if err != nil {
		return nil, errors.Wrap(err, "count keys by type")
	}
	defer rows.Close()
	for rows.Next() {
		var keyType string
		var count int
		if err := rows.Scan(&keyType, &count); err != nil {
			return nil, errors.Wrap(err, "scan type count")
		}
		stats.ByType[keyType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	ks.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount)
	ks.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize)
	stats.DBSizeBytes = pageCount * pageSize

	return stats, nil
}

// GenerateSSK itself lives in commands.go: it submits a GenerateSSK job
// through a *NodeSession and, when a KeyStoreInterface is configured,
// persists the resulting pair under the caller-supplied name.

// GenerateCHK returns a content-derived, CHK-style identifier for data:
// "CHK@" followed by the unpadded URL-safe base64 of data's unsalted sha256
// digest. Identical data always yields the same string. It is not the CHK
// a node assigns (that also folds in compression and crypto algorithm
// negotiation) and does not match the node's URIGenerated response.
func GenerateCHK(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return "CHK@" + base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// ParseKeyType classifies a Freenet URI by its scheme prefix.
func ParseKeyType(uri string) string {
	switch {
	case strings.HasPrefix(uri, "CHK@"):
		return "CHK"
	case strings.HasPrefix(uri, "SSK@"):
		return "SSK"
	case strings.HasPrefix(uri, "USK@"):
		return "USK"
	case strings.HasPrefix(uri, "KSK@"):
		return "KSK"
	default:
		return "UNKNOWN"
	}
}

// IsInsertURI reports whether uri carries a private-key component, i.e.
// SSK@public,private,crypto/... or USK@public,private,crypto/...,
// distinguishing an insert URI from the corresponding request URI.
func IsInsertURI(uri string) bool {
	keyPart := strings.SplitN(uri, "/", 2)[0]
	if !strings.HasPrefix(keyPart, "SSK@") && !strings.HasPrefix(keyPart, "USK@") {
		return false
	}
	return strings.Count(keyPart, ",") >= 2
}

// GetRequestURI strips the private-key component from an insert URI,
// returning the public request URI a peer could safely be given. uri is
// returned unchanged if it is not an insert URI.
func GetRequestURI(uri string) string {
	if !IsInsertURI(uri) {
		return uri
	}

	parts := strings.SplitN(uri, "/", 2)
	keyPart := parts[0]
	components := strings.Split(keyPart[4:], ",")
	if len(components) < 3 {
		return uri
	}

	requestKey := keyPart[:4] + components[0] + "," + components[2]
	if len(parts) > 1 {
		return requestKey + "/" + parts[1]
	}
	return requestKey
}

// IncrementUSK bumps the trailing version segment of a USK@.../sitename/N
// URI by one, for republishing an updated edition.
func IncrementUSK(uskURI string) (string, error) {
	parts := strings.Split(uskURI, "/")
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "USK@") {
		return "", &BadArgumentError{Reason: "not a USK URI: " + uskURI}
	}

	var version int
	if len(parts) >= 3 {
		if _, err := fmt.Sscanf(parts[len(parts)-1], "%d", &version); err != nil {
			return "", &BadArgumentError{Reason: "invalid USK version segment: " + parts[len(parts)-1]}
		}
	}
	version++

	parts[len(parts)-1] = fmt.Sprintf("%d", version)
	return strings.Join(parts, "/"), nil
}
