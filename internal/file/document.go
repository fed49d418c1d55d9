package file

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/divVerent/staffmerger/internal/document"
)

const ageSuffix = ".age"

// IsEncrypted reports whether name refers to an age encrypted document.
func IsEncrypted(name string) bool {
	return strings.HasSuffix(name, ageSuffix)
}

// IsDatabase reports whether name refers to an SQLite document.
func IsDatabase(name string) bool {
	return filepath.Ext(name) == ".db"
}

// Checksum returns the SHA-256 of a file as hex.
func Checksum(name string) (string, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("could not read %v: %v", name, err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(b)), nil
}

// ReadDocument loads a document. Files ending in .db are SQLite
// databases, everything else is YAML, age encrypted with passphrase if the
// name ends in .age.
func ReadDocument(name, passphrase string) (*document.Memory, error) {
	if IsDatabase(name) {
		db, err := document.OpenSQLite(name)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.Export()
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %v", name, err)
	}
	defer f.Close()
	var r io.Reader = f
	if IsEncrypted(name) {
		if passphrase == "" {
			return nil, fmt.Errorf("%v is encrypted, but no passphrase was given", name)
		}
		identity, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			return nil, fmt.Errorf("invalid passphrase: %v", err)
		}
		r, err = age.Decrypt(f, identity)
		if err != nil {
			return nil, fmt.Errorf("could not decrypt %v: %v", name, err)
		}
	}
	m, err := document.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return m, nil
}

// WriteDocument stores m in the format implied by name.
func WriteDocument(name string, m *document.Memory, passphrase string) (err error) {
	if IsDatabase(name) {
		db, err := document.OpenSQLite(name)
		if err != nil {
			return err
		}
		if err := db.Import(m); err != nil {
			db.Close()
			return err
		}
		return db.Close()
	}
	var buf bytes.Buffer
	if IsEncrypted(name) {
		if passphrase == "" {
			return fmt.Errorf("%v is to be encrypted, but no passphrase was given", name)
		}
		recipient, err := age.NewScryptRecipient(passphrase)
		if err != nil {
			return fmt.Errorf("invalid passphrase: %v", err)
		}
		w, err := age.Encrypt(&buf, recipient)
		if err != nil {
			return fmt.Errorf("could not encrypt %v: %v", name, err)
		}
		if err := document.Encode(w, m); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("could not encrypt %v: %v", name, err)
		}
	} else if err := document.Encode(&buf, m); err != nil {
		return err
	}
	// Only replace the file once the whole document is encoded.
	if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("could not write %v: %v", name, err)
	}
	return nil
}
