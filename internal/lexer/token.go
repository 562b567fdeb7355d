package lexer

// Kind represents the type of token identified by the lexer.
type Kind uint8

const (
	// KindInvalid doubles as the end of input marker.
	KindInvalid Kind = iota
	KindListStart
	KindListEnd
	KindQuote
	KindNumber
	KindIdentifier
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "INVALID"
	case KindListStart:
		return "LIST_START"
	case KindListEnd:
		return "LIST_END"
	case KindQuote:
		return "QUOTE"
	case KindNumber:
		return "NUMBER"
	case KindIdentifier:
		return "IDENT"
	default:
		return "unknown"
	}
}

// Token is a lexical unit of Pilot Scheme source. Text is owned by the token
// and stays valid after further calls to Next. It is empty only for the end
// of input.
type Token struct {
	Kind   Kind
	Text   string
	Offset int
}

// End reports whether t marks the end of input.
func (t Token) End() bool {
	return t.Kind == KindInvalid
}

func (t Token) String() string {
	return "[" + t.Kind.String() + "]\t" + t.Text
}
