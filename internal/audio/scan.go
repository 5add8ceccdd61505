package audio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Collect expands paths into file handles. Directories are walked recursively and only files
// ending in ext are taken from them; hidden files and directories are skipped. Files named
// explicitly are always returned so the queue can apply its own filter.
func Collect(paths []string, ext string) ([]models.FileHandle, error) {
	var files []models.FileHandle
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if !stat.IsDir() {
			file, err := models.NewLocalFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, file)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != path && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !shared.HasExtension(d.Name(), ext) {
				return nil
			}

			file, err := models.NewLocalFile(p)
			if err != nil {
				return err
			}
			files = append(files, file)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
	}
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
