package store

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	saltLength   = 16
	secretKeyLen = 32
)

// FileKV is a durable KV backed by a single JSON file, the desktop analogue
// of per-origin browser storage. Writes are atomic (temp file + rename).
// An optional passphrase encrypts the file at rest with a scrypt-derived
// secretbox key.
type FileKV struct {
	path       string
	passphrase string

	lock   sync.RWMutex
	values map[string]string
}

var _ KV = (*FileKV)(nil)

// FileKVOption configures a FileKV.
type FileKVOption func(*FileKV)

// WithPassphrase enables at-rest encryption of the storage file.
func WithPassphrase(passphrase string) FileKVOption {
	return func(kv *FileKV) {
		kv.passphrase = passphrase
	}
}

// NewFileKV opens (or lazily creates) the storage file at path. A missing,
// unreadable, or undecryptable file degrades to an empty store rather than
// failing: persisted session state is always recoverable by logging in again.
func NewFileKV(path string, options ...FileKVOption) *FileKV {
	kv := &FileKV{
		path:   path,
		values: make(map[string]string),
	}
	for _, opt := range options {
		opt(kv)
	}
	kv.loadFile()
	return kv
}

func (kv *FileKV) Get(key string) string {
	kv.lock.RLock()
	defer kv.lock.RUnlock()
	return kv.values[key]
}

func (kv *FileKV) Set(key, value string) error {
	kv.lock.Lock()
	defer kv.lock.Unlock()
	kv.values[key] = value
	return kv.persist()
}

func (kv *FileKV) Delete(key string) error {
	kv.lock.Lock()
	defer kv.lock.Unlock()
	if _, ok := kv.values[key]; !ok {
		return nil
	}
	delete(kv.values, key)
	return kv.persist()
}

func (kv *FileKV) loadFile() {
	raw, err := os.ReadFile(kv.path)
	if err != nil {
		return
	}
	if kv.passphrase != "" {
		raw, err = decrypt(raw, kv.passphrase)
		if err != nil {
			return
		}
	}
	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return
	}
	kv.values = values
}

// persist must be called with the write lock held.
func (kv *FileKV) persist() error {
	raw, err := json.Marshal(kv.values)
	if err != nil {
		return errors.Wrap(err, "[FileKV.persist] marshal values")
	}
	if kv.passphrase != "" {
		raw, err = encrypt(raw, kv.passphrase)
		if err != nil {
			return errors.Wrap(err, "[FileKV.persist] encrypt")
		}
	}

	if err := os.MkdirAll(filepath.Dir(kv.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileKV.persist] mkdir")
	}
	tmp := kv.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "[FileKV.persist] write temp file")
	}
	if err := os.Rename(tmp, kv.path); err != nil {
		return errors.Wrap(err, "[FileKV.persist] rename")
	}
	return nil
}

// envelope is the on-disk format of an encrypted storage file.
type envelope struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Box   []byte `json:"box"`
}

func encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "generating salt")
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "generating nonce")
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	box := secretbox.Seal(nil, plaintext, &nonce, key)

	return json.Marshal(envelope{Salt: salt, Nonce: nonce[:], Box: box})
}

func decrypt(raw []byte, passphrase string) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "parsing envelope")
	}
	if len(env.Nonce) != 24 {
		return nil, errors.New("invalid nonce length")
	}

	key, err := deriveKey(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], env.Nonce)

	plaintext, ok := secretbox.Open(nil, env.Box, &nonce, key)
	if !ok {
		return nil, errors.New("decryption failed")
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte) (*[secretKeyLen]byte, error) {
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, secretKeyLen)
	if err != nil {
		return nil, errors.Wrap(err, "deriving key")
	}
	var key [secretKeyLen]byte
	copy(key[:], derived)
	return &key, nil
}
