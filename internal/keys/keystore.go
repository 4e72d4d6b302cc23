package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sigilnet/sigil/pkg/types"
)

// keystoreFile is the on-disk JSON format for an encrypted identity.
type keystoreFile struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	SealedSeed  []byte    `json:"sealed_seed"`
	Accounts    []Account `json:"accounts"`
	NextAccount uint32    `json:"next_account"`
}

// Account is a derived account's stored metadata. Index is the hardened
// BIP-44 account number; the private key is re-derived from the seed on
// demand and never stored.
type Account struct {
	Index   uint32        `json:"index"`
	Name    string        `json:"name"`
	Address types.Address `json:"address"`
}

// Keystore manages encrypted identity files in a directory.
type Keystore struct {
	dir string
}

// NewKeystore opens (creating if needed) a keystore directory.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (ks *Keystore) filePath(name string) string {
	return filepath.Join(ks.dir, name+".key")
}

// Create seals a seed into a new identity file.
func (ks *Keystore) Create(name string, seed, password []byte, params KDFParams) error {
	path := ks.filePath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("identity %q already exists", name)
	}

	sealed, err := Seal(seed, password, params)
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}
	return ks.write(path, &keystoreFile{
		Version:    1,
		CreatedAt:  time.Now().UTC(),
		SealedSeed: sealed,
	})
}

// Unlock decrypts an identity and returns its seed.
func (ks *Keystore) Unlock(name string, password []byte) ([]byte, error) {
	kf, err := ks.read(ks.filePath(name))
	if err != nil {
		return nil, err
	}
	seed, err := Open(kf.SealedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("unlock identity %q: %w", name, err)
	}
	return seed, nil
}

// NextAccount allocates the next account index for an identity, records
// the derived account, and returns it.
func (ks *Keystore) NextAccount(name, label string, seed []byte) (Account, error) {
	path := ks.filePath(name)
	kf, err := ks.read(path)
	if err != nil {
		return Account{}, err
	}

	master, err := MasterKey(seed)
	if err != nil {
		return Account{}, err
	}
	key, err := master.Account(kf.NextAccount)
	if err != nil {
		return Account{}, err
	}

	acct := Account{Index: kf.NextAccount, Name: label, Address: key.Address()}
	kf.Accounts = append(kf.Accounts, acct)
	kf.NextAccount++
	if err := ks.write(path, kf); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Accounts returns the derived accounts recorded for an identity.
func (ks *Keystore) Accounts(name string) ([]Account, error) {
	kf, err := ks.read(ks.filePath(name))
	if err != nil {
		return nil, err
	}
	return kf.Accounts, nil
}

// List returns the names of all identities in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".key" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes an identity file.
func (ks *Keystore) Delete(name string) error {
	path := ks.filePath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("identity %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) write(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

func (ks *Keystore) read(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported identity version: %d", kf.Version)
	}
	return &kf, nil
}
