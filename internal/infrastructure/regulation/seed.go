package regulation

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Seed file names inside the data directory
const (
	BannedProductsFile = "banned_products.json"
	RecallsFile        = "product_recalls.json"
)

//go:embed seed/*.json
var seedFS embed.FS

// EnsureSeed writes the default datasets into dir when they are absent.
// Existing files are never overwritten. It returns the paths it created.
func EnsureSeed(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}

	var created []string
	for _, name := range []string{BannedProductsFile, RecallsFile} {
		ok, err := writeIfAbsent(filepath.Join(dir, name), name)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, filepath.Join(dir, name))
		}
	}
	return created, nil
}

func writeIfAbsent(path, seedName string) (bool, error) {
	data, err := seedFS.ReadFile("seed/" + seedName)
	if err != nil {
		return false, fmt.Errorf("missing embedded seed %s: %w", seedName, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
