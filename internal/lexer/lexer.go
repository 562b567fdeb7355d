package lexer

import (
	"errors"
	"fmt"

	gbuf "github.com/blong14/pilot/internal/buffer"
)

var ErrUnclassifiedCharacter = errors.New("lexer: unclassified character")

// UnclassifiedCharacterError reports a byte that is neither whitespace, a
// delimiter nor part of an atom.
type UnclassifiedCharacterError struct {
	Offset int
	Char   byte
}

func (e *UnclassifiedCharacterError) Error() string {
	return fmt.Sprintf("lexer: unclassified character %q at offset %d", e.Char, e.Offset)
}

func (e *UnclassifiedCharacterError) Is(target error) bool {
	return target == ErrUnclassifiedCharacter
}

type Option func(l *Lexer)

// WithQuote toggles the ' token. It is on by default; when off a quote is an
// unclassified character.
func WithQuote(enabled bool) Option {
	return func(l *Lexer) {
		l.quote = enabled
	}
}

// Lexer pulls tokens out of a source one call at a time. Atom text is
// accumulated in a buffer drawn from the allocator given to New; the buffer
// is reset and reused for every token.
//
// A Lexer is bound to one source: the cursor only moves forward and every
// call to Next must pass the same bytes.
type Lexer struct {
	buf    *gbuf.Buffer[byte]
	cursor int
	quote  bool
	err    error
}

func New(alloc gbuf.Allocator, opts ...Option) *Lexer {
	l := &Lexer{
		buf:   gbuf.New[byte](alloc),
		quote: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cursor returns the offset of the next byte to scan.
func (l *Lexer) Cursor() int {
	return l.cursor
}

// Err returns the error that stopped the lexer, if any.
func (l *Lexer) Err() error {
	return l.err
}

// Next returns the next token of src. At the end of input it returns a
// KindInvalid token and a nil error, as many times as it is called.
//
// An unclassified character yields a KindInvalid token with an
// *UnclassifiedCharacterError and leaves the cursor on that character. Running
// out of memory while accumulating an atom stops the lexer: this and every
// later call return the allocation error.
func (l *Lexer) Next(src []byte) (Token, error) {
	if l.err != nil {
		return Token{Offset: l.cursor}, l.err
	}
	for l.cursor < len(src) && isWhitespace(src[l.cursor]) {
		l.cursor++
	}
	if l.cursor >= len(src) {
		return Token{Offset: l.cursor}, nil
	}

	start := l.cursor
	c := src[start]
	switch {
	case c == '(':
		l.cursor++
		return Token{Kind: KindListStart, Text: "(", Offset: start}, nil
	case c == ')':
		l.cursor++
		return Token{Kind: KindListEnd, Text: ")", Offset: start}, nil
	case c == '\'' && l.quote:
		l.cursor++
		return Token{Kind: KindQuote, Text: "'", Offset: start}, nil
	case isDigit(c):
		return l.emit(KindNumber, start, l.scanNumber(src))
	case isIdent(c):
		return l.emit(KindIdentifier, start, l.scanIdentifier(src))
	}
	return Token{Offset: start}, &UnclassifiedCharacterError{Offset: start, Char: c}
}

func (l *Lexer) emit(kind Kind, start int, err error) (Token, error) {
	defer l.buf.Reset()
	if err != nil {
		l.err = fmt.Errorf("lexer: atom at offset %d: %w", start, err)
		return Token{Offset: start}, l.err
	}
	return Token{Kind: kind, Text: string(l.buf.Slice()), Offset: start}, nil
}

// advance moves the current byte into the atom buffer.
func (l *Lexer) advance(src []byte) error {
	if err := l.buf.Append(src[l.cursor]); err != nil {
		return err
	}
	l.cursor++
	return nil
}

func (l *Lexer) peek(src []byte, n int) byte {
	if l.cursor+n < len(src) {
		return src[l.cursor+n]
	}
	return 0
}

func (l *Lexer) scanNumber(src []byte) error {
	for isDigit(l.peek(src, 0)) {
		if err := l.advance(src); err != nil {
			return err
		}
	}
	if l.peek(src, 0) != '.' || !isDigit(l.peek(src, 1)) {
		return nil
	}
	if err := l.advance(src); err != nil {
		return err
	}
	for isDigit(l.peek(src, 0)) {
		if err := l.advance(src); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lexer) scanIdentifier(src []byte) error {
	for isIdent(l.peek(src, 0)) {
		if err := l.advance(src); err != nil {
			return err
		}
	}
	return nil
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_' || c == '-'
}

// Tokenize runs a fresh Lexer over src and collects every token before the
// end of input.
func Tokenize(alloc gbuf.Allocator, src []byte, opts ...Option) ([]Token, error) {
	l := New(alloc, opts...)
	tokens := make([]Token, 0)
	for {
		tok, err := l.Next(src)
		if err != nil {
			return tokens, err
		}
		if tok.End() {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
