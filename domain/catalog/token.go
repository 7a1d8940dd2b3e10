package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxTokenLength bounds the encoded token. Chat platforms cap the custom id
// attached to a button at 100 characters.
const MaxTokenLength = 100

// Token is the identity embedded in an interactive control. It survives
// restarts because it alone names the entity.
type Token struct {
	Kind Kind   `json:"k"`
	ID   string `json:"id"`
}

// NewToken builds a token for the given entity.
func NewToken(kind Kind, id string) Token {
	return Token{Kind: kind, ID: id}
}

// Validate checks the kind is known and the id carries the matching prefix.
func (t Token) Validate() error {
	prefix := IDPrefix(t.Kind)
	if prefix == "" {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, t.Kind)
	}
	if !strings.HasPrefix(t.ID, prefix) || len(t.ID) == len(prefix) {
		return fmt.Errorf("%w: id %q does not belong to kind %q", ErrInvalidToken, t.ID, t.Kind)
	}
	return nil
}

// Encode returns the compact wire form of the token.
func (t Token) Encode() (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(data) > MaxTokenLength {
		return "", fmt.Errorf("%w: encoded length %d exceeds %d", ErrInvalidToken, len(data), MaxTokenLength)
	}
	return string(data), nil
}

// String returns the encoded token or an empty string if it is invalid.
func (t Token) String() string {
	s, err := t.Encode()
	if err != nil {
		return ""
	}
	return s
}

// ParseToken decodes a token produced by Encode. Unknown fields, trailing
// data and mismatched prefixes are rejected.
func ParseToken(raw string) (Token, error) {
	if raw == "" || len(raw) > MaxTokenLength {
		return Token{}, fmt.Errorf("%w: bad length %d", ErrInvalidToken, len(raw))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var t Token
	if err := dec.Decode(&t); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if dec.More() {
		return Token{}, fmt.Errorf("%w: trailing data", ErrInvalidToken)
	}
	if err := t.Validate(); err != nil {
		return Token{}, err
	}
	return t, nil
}
