// Package nonce выдаёт криптостойкие nonce для CSP и кэширует их по идентификатору запроса.
package nonce

// generator.go
import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	DefaultLength = 16
	MinLength     = 16
	MaxLength     = 64
)

var (
	// ErrRandomness — источник случайности недоступен. Слабого запасного варианта нет.
	ErrRandomness    = errors.New("nonce: secure random source failed")
	ErrInvalidLength = errors.New("nonce: invalid length")
)

// Generator читает length байт из криптостойкого источника и кодирует их
// в base64url без паддинга. Безопасен для конкурентного использования,
// если безопасен его Reader (crypto/rand.Reader — да).
type Generator struct {
	length int
	reader io.Reader
}

func NewGenerator(length int) (*Generator, error) {
	return NewGeneratorWithReader(length, rand.Reader)
}

// NewGeneratorWithReader — для тестов: подменяет источник случайности.
func NewGeneratorWithReader(length int, r io.Reader) (*Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidLength, length, MinLength, MaxLength)
	}
	if r == nil {
		r = rand.Reader
	}
	return &Generator{length: length, reader: r}, nil
}

// Length — число случайных байт в одном nonce.
func (g *Generator) Length() int { return g.length }

func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.length)
	if _, err := io.ReadFull(g.reader, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomness, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Generate — разовый nonce из crypto/rand.
func Generate(length int) (string, error) {
	g, err := NewGenerator(length)
	if err != nil {
		return "", err
	}
	return g.Generate()
}
