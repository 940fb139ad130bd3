package moderation

import (
	"bufio"
	"bytes"
	"io/fs"
	"path"
	"strings"

	"synergy/errors"
)

// Dictionary is the merged content of every word list of a directory.
type Dictionary struct {
	Words     []string
	Languages []string
}

// LoadDictionary reads every "<lang>.txt" file of dir, one word per line.
func LoadDictionary(fsys fs.FS, dir string) (*Dictionary, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		// Scanner handles \n and \r\n alike
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}
	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return &Dictionary{Words: words, Languages: languages}, nil
}
