package board

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-pairs/internal/config"
)

// LoadSymbols builds a symbol pool from a list of paths (files or
// directories). Each non-empty line is one symbol; lines starting with '#'
// are comments.
func LoadSymbols(paths []string) ([]string, error) {
	var symbols []string
	seen := make(map[string]string)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access path %s: %w", path, err)
		}

		var files []string
		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read dir %s: %w", path, err)
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					files = append(files, filepath.Join(path, entry.Name()))
				}
			}
		} else {
			files = append(files, path)
		}

		for _, f := range files {
			s, err := loadFile(f)
			if err != nil {
				return nil, err
			}
			for _, sym := range s {
				if prev, ok := seen[sym]; ok {
					return nil, fmt.Errorf("%w: symbol %q in %s already defined in %s", config.ErrConfiguration, sym, f, prev)
				}
				seen[sym] = f
				symbols = append(symbols, sym)
			}
		}
	}

	return symbols, nil
}

func loadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	var symbols []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan file %s: %w", path, err)
	}

	return symbols, nil
}
