package corpus

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Walker enumerates the on-disk tender corpus and fingerprints its
// documents. The fingerprint keys point identity, so it must be stable
// across runs for unchanged files.
type Walker struct {
	root string
}

func New(root string) *Walker {
	return &Walker{root: root}
}

// ListDocuments walks the corpus root and returns every PDF path in
// deterministic (lexical walk) order.
func (w *Walker) ListDocuments(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus %s: %w", w.root, err)
	}
	return paths, nil
}

// HashDocument fingerprints file contents with SHA-1. If the file
// cannot be read the path itself is hashed, so a broken file still
// gets a stable identity instead of sinking the whole pass.
func (w *Walker) HashDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		sum := sha1.Sum([]byte(path))
		return hex.EncodeToString(sum[:]), nil
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
