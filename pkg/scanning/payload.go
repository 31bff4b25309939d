package scanning

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyPayload - nothing left after trimming
	ErrEmptyPayload = errors.New("empty scan payload")
	// ErrInvalidPayload - payload bytes are not UTF-8 text
	ErrInvalidPayload = errors.New("scan payload is not valid UTF-8")
)

// DecodePayload - turns raw decoder bytes into the data value stored in the log
func DecodePayload(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", ErrInvalidPayload
	}
	return normalize(string(raw))
}

func normalize(data string) (string, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", ErrEmptyPayload
	}
	return data, nil
}
