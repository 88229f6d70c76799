package textutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// KeywordLimits caps the keyword list attached to one segment.
type KeywordLimits struct {
	MaxCount  int
	MaxLength int
}

// Normalizer maps synonyms onto canonical keywords and removes forbidden ones.
// The zero value only folds, deduplicates, and sorts.
type Normalizer struct {
	mapping   map[string]string
	forbidden map[string]struct{}
}

// LoadNormalizer reads an optional JSON object of synonym → canonical keyword
// and an optional JSON array of forbidden keywords. Missing files are ignored.
func LoadNormalizer(mappingPath, forbiddenPath string) (*Normalizer, error) {
	n := &Normalizer{
		mapping:   make(map[string]string),
		forbidden: make(map[string]struct{}),
	}
	if strings.TrimSpace(mappingPath) != "" {
		var raw map[string]string
		found, err := readJSON(mappingPath, &raw)
		if err != nil {
			return nil, fmt.Errorf("load keyword mapping: %w", err)
		}
		if found {
			for from, to := range raw {
				from, to = strings.TrimSpace(Fold(from)), strings.TrimSpace(Fold(to))
				if from != "" && to != "" {
					n.mapping[from] = to
				}
			}
		}
	}
	if strings.TrimSpace(forbiddenPath) != "" {
		var raw []string
		found, err := readJSON(forbiddenPath, &raw)
		if err != nil {
			return nil, fmt.Errorf("load forbidden keywords: %w", err)
		}
		if found {
			for _, word := range raw {
				if word = strings.TrimSpace(Fold(word)); word != "" {
					n.forbidden[word] = struct{}{}
				}
			}
		}
	}
	return n, nil
}

// NewNormalizer builds a normalizer from in-memory tables.
func NewNormalizer(mapping map[string]string, forbidden []string) *Normalizer {
	n := &Normalizer{
		mapping:   make(map[string]string, len(mapping)),
		forbidden: make(map[string]struct{}, len(forbidden)),
	}
	for from, to := range mapping {
		n.mapping[Fold(strings.TrimSpace(from))] = Fold(strings.TrimSpace(to))
	}
	for _, word := range forbidden {
		n.forbidden[Fold(strings.TrimSpace(word))] = struct{}{}
	}
	return n
}

// Normalize folds, maps, filters, deduplicates, sorts, and finally applies
// limits. Keywords longer than MaxLength runes are dropped, not truncated.
func (n *Normalizer) Normalize(keywords []string, limits KeywordLimits) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		folded := strings.Join(strings.Fields(Fold(keyword)), " ")
		if folded == "" {
			continue
		}
		if n != nil {
			if canonical, ok := n.mapping[folded]; ok {
				folded = canonical
			}
			if _, banned := n.forbidden[folded]; banned {
				continue
			}
		}
		if limits.MaxLength > 0 && len([]rune(folded)) > limits.MaxLength {
			continue
		}
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}
	slices.Sort(out)
	if limits.MaxCount > 0 && len(out) > limits.MaxCount {
		out = out[:limits.MaxCount]
	}
	return out
}

// MergeKeywords unions keyword lists, folding case, and returns them sorted.
func MergeKeywords(lists ...[]string) []string {
	var zero *Normalizer
	var all []string
	for _, list := range lists {
		all = append(all, list...)
	}
	return zero.Normalize(all, KeywordLimits{})
}

// FilenameKeywords derives keywords from a media file name. Words joined by
// underscores form one keyword and " - " style separators split keywords, so
// "voyage_-_New_York_-_chouette.mp4" yields [chouette new york voyage].
// Numeric-only parts are discarded.
func FilenameKeywords(path string) []string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, "_-_", "-")
	name = strings.ReplaceAll(name, "_", " ")

	var parts []string
	for _, part := range strings.Split(name, "-") {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == ' ' {
				return r
			}
			return -1
		}, part)
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" || isDigits(cleaned) {
			continue
		}
		parts = append(parts, cleaned)
	}
	return MergeKeywords(parts)
}

func isDigits(value string) bool {
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return value != ""
}

func readJSON(path string, target any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
