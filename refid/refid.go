// Package refid manages a KFS table's persistent 160-bit reference id (R):
// create-or-load semantics on table open, atomic first-write.
package refid

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/pgerbes1/kfs/keyalg"
	"github.com/pgerbes1/kfs/kfserr"
	"k8s.io/klog/v2"
)

// FileName is the reserved name of the reference-id file within a table
// directory. Directory enumeration elsewhere in KFS must skip it.
const FileName = "r"

// Open ensures tableDir exists, creating and persisting a fresh random
// reference id on first open, then returns the table's reference id.
//
// override, when non-nil, pins R to a caller-supplied value (the
// `referenceId` config option) instead of generating one; it is only
// consulted when the reference-id file does not yet exist.
func Open(tableDir string, override *keyalg.Key) (keyalg.Key, error) {
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		return keyalg.Key{}, kfserr.Wrap(err, "create table directory")
	}

	path := filepath.Join(tableDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != keyalg.KeySize {
			return keyalg.Key{}, kfserr.Wrap(
				fmt.Errorf("reference id file has %d bytes, want %d", len(data), keyalg.KeySize),
				"read reference id")
		}
		var r keyalg.Key
		copy(r[:], data)
		return r, nil
	case os.IsNotExist(err):
		r, genErr := generate(override)
		if genErr != nil {
			return keyalg.Key{}, genErr
		}
		if writeErr := renameio.WriteFile(path, r[:], 0o600); writeErr != nil {
			return keyalg.Key{}, kfserr.Wrap(writeErr, "persist reference id")
		}
		klog.V(1).Infof("kfs: generated new reference id for table %s", tableDir)
		return r, nil
	default:
		return keyalg.Key{}, kfserr.Wrap(err, "read reference id")
	}
}

func generate(override *keyalg.Key) (keyalg.Key, error) {
	if override != nil {
		return *override, nil
	}
	var r keyalg.Key
	if _, err := rand.Read(r[:]); err != nil {
		return keyalg.Key{}, kfserr.Wrap(err, "generate reference id")
	}
	return r, nil
}
