// Package morse holds the closed International Morse Code alphabet.
package morse

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrUnknownSymbol indicates a symbol outside the fixed alphabet.
var ErrUnknownSymbol = errors.New("symbol not in morse alphabet")

// Alphabet lists the 36 supported symbols in table order.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var table = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..", '0': "-----", '1': ".----", '2': "..---", '3': "...--",
	'4': "....-", '5': ".....", '6': "-....", '7': "--...", '8': "---..",
	'9': "----.",
}

// Symbols returns the alphabet as runes.
func Symbols() []rune {
	return []rune(Alphabet)
}

// Pattern returns the dot/dash pattern of r. Lower-case letters are accepted.
func Pattern(r rune) (string, error) {
	p, ok := table[unicode.ToUpper(r)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, r)
	}
	return p, nil
}

// Contains reports whether r is in the alphabet.
func Contains(r rune) bool {
	_, ok := table[unicode.ToUpper(r)]
	return ok
}

// Units returns the keyed length of r in dit units, excluding the trailing gap.
func Units(r rune) (int, error) {
	p, err := Pattern(r)
	if err != nil {
		return 0, err
	}
	units := len(p) - 1
	for _, s := range p {
		if s == '-' {
			units += 3
		} else {
			units++
		}
	}
	return units, nil
}
