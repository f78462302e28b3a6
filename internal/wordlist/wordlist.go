// Package wordlist loads the vocabulary used for text keying.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// defaultWords is a small operating vocabulary used when no word list file exists.
var defaultWords = []string{
	"CQ", "DE", "K", "KN", "BK", "AR", "SK", "R", "TU", "73", "88", "QTH", "QRZ",
	"QSL", "QSO", "QRM", "QRN", "QSB", "QRP", "RST", "5NN", "599", "UR", "RIG",
	"ANT", "WX", "NAME", "OP", "HR", "ES", "FB", "OM", "YL", "GM", "GA", "GE",
	"PSE", "AGN", "TNX", "HW", "CPY", "SRI", "BTU", "DX", "TEST", "THE", "AND",
	"FOR", "YOU", "WITH", "THIS", "THAT", "FROM", "HAVE", "WILL", "GOOD", "SIGNAL",
	"POWER", "WATTS", "BAND", "RADIO", "MORSE", "CODE", "KEY", "PADDLE", "COPY",
}

// DefaultWords returns a copy of the built-in vocabulary.
func DefaultWords() []string {
	return append([]string(nil), defaultWords...)
}

// LoadWords reads one word per line from the provided file path and keeps words
// that can be keyed in Morse.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			words = append(words, field)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	words = Filter(words, KeyableWord)
	if len(words) == 0 {
		return nil, fmt.Errorf("word list %s has no keyable words", path)
	}
	return words, nil
}

// LoadOrDefault loads path, falling back to the built-in vocabulary when the file
// does not exist. The bool reports whether the fallback was used.
func LoadOrDefault(path string) ([]string, bool, error) {
	if path == "" {
		return DefaultWords(), true, nil
	}
	words, err := LoadWords(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultWords(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return words, false, nil
}
