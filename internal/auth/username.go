package auth

import (
	"strings"
	"unicode"
)

const (
	maxOneWordLength = 20
	maxTwoWordLength = 19
)

// NameErrorKind identifies which username rule failed.
type NameErrorKind int

const (
	NameEmpty NameErrorKind = iota
	NameNonLetterCharacters
	NameMoreThanTwoWords
	NameWordLengthOutOfRange
)

// InvalidNameError is returned by ValidateUsername.
// TwoWords distinguishes the two length variants of NameWordLengthOutOfRange.
type InvalidNameError struct {
	Kind     NameErrorKind
	TwoWords bool
}

var (
	ErrNameEmpty        = &InvalidNameError{Kind: NameEmpty}
	ErrNameNonLetters   = &InvalidNameError{Kind: NameNonLetterCharacters}
	ErrNameTooManyWords = &InvalidNameError{Kind: NameMoreThanTwoWords}
	ErrOneNameLength    = &InvalidNameError{Kind: NameWordLengthOutOfRange}
	ErrTwoNamesLength   = &InvalidNameError{Kind: NameWordLengthOutOfRange, TwoWords: true}
)

func (e *InvalidNameError) Error() string {
	return "invalid name: " + e.Message()
}

// Message is the text shown next to the name field.
func (e *InvalidNameError) Message() string {
	switch e.Kind {
	case NameEmpty:
		return "Name cannot be empty"
	case NameNonLetterCharacters:
		return "Name must consist of letters alone"
	case NameMoreThanTwoWords:
		return "Name cannot consist of more than 2 names"
	case NameWordLengthOutOfRange:
		if e.TwoWords {
			return "Both names must have 1-19 characters"
		}
		return "Name must have 1-20 characters"
	}
	return "Name is invalid"
}

// Is matches another InvalidNameError with the same kind and variant.
func (e *InvalidNameError) Is(target error) bool {
	t, ok := target.(*InvalidNameError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.TwoWords == t.TwoWords
}

// ValidateUsername checks a display name. The first failing rule wins:
// empty, non-letter characters, more than one space, word length.
func ValidateUsername(raw string) error {
	if raw == "" {
		return ErrNameEmpty
	}
	for _, r := range raw {
		if !isASCIILetter(r) && !unicode.IsSpace(r) {
			return ErrNameNonLetters
		}
	}
	if strings.Contains(raw, " ") {
		if strings.Count(raw, " ") > 1 {
			return ErrNameTooManyWords
		}
		first, last, _ := strings.Cut(raw, " ")
		if !lettersBetween(first, 1, maxTwoWordLength) || !lettersBetween(last, 1, maxTwoWordLength) {
			return ErrTwoNamesLength
		}
		return nil
	}
	if !lettersBetween(raw, 1, maxOneWordLength) {
		return ErrOneNameLength
	}
	return nil
}

func lettersBetween(s string, lo, hi int) bool {
	if len(s) < lo || len(s) > hi {
		return false
	}
	for _, r := range s {
		if !isASCIILetter(r) {
			return false
		}
	}
	return true
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
