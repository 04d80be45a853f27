package parser

import "fmt"

// TokenType represents the type of a STEP token
type TokenType int

const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	// Identifiers and literals
	TOKEN_KEYWORD     // Entity type or header keyword (e.g. IFCWALL, FILE_SCHEMA)
	TOKEN_STRING      // 'quoted string'
	TOKEN_INTEGER     // 42, -3
	TOKEN_REAL        // 0.001, 1.E-05
	TOKEN_ENUM        // .ELEMENT., .T., .F.
	TOKEN_INSTANCE_ID // #12 at a definition position (followed by =)
	TOKEN_REFERENCE   // #12 at an attribute position

	// Markers
	TOKEN_OMITTED // $
	TOKEN_DERIVED // *

	// Delimiters
	TOKEN_EQUALS
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_COMMA
	TOKEN_SEMICOLON
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL:     "ILLEGAL",
	TOKEN_EOF:         "EOF",
	TOKEN_KEYWORD:     "KEYWORD",
	TOKEN_STRING:      "STRING",
	TOKEN_INTEGER:     "INTEGER",
	TOKEN_REAL:        "REAL",
	TOKEN_ENUM:        "ENUM",
	TOKEN_INSTANCE_ID: "INSTANCE_ID",
	TOKEN_REFERENCE:   "REFERENCE",
	TOKEN_OMITTED:     "$",
	TOKEN_DERIVED:     "*",
	TOKEN_EQUALS:      "=",
	TOKEN_LPAREN:      "(",
	TOKEN_RPAREN:      ")",
	TOKEN_COMMA:       ",",
	TOKEN_SEMICOLON:   ";",
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// String returns a string representation of the token
func (t *Token) String() string {
	typeName := tokenNames[t.Type]
	if typeName == "" {
		typeName = fmt.Sprintf("UNKNOWN(%d)", t.Type)
	}
	return fmt.Sprintf("%s(%s) at %d:%d", typeName, t.Value, t.Line, t.Column)
}

// Lexer performs lexical analysis over STEP physical file text
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// NewLexer creates a new Lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips a /* ... */ block comment
func (l *Lexer) skipComment() {
	// Consume "/*"
	l.readChar()
	l.readChar()
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // consume '*'
			l.readChar() // consume '/'
			return
		}
		l.readChar()
	}
}

// readKeyword reads an entity type or header keyword. STEP keywords are
// uppercase identifiers that may carry digits, underscores and hyphens
// (e.g. ISO-10303-21, FILE_SCHEMA, IFCWALL).
func (l *Lexer) readKeyword() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '-' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer or real literal and reports which it was.
// STEP reals carry a decimal point and may have an exponent (1.E-05).
func (l *Lexer) readNumber() (string, bool) {
	position := l.position
	isReal := false

	if l.ch == '+' || l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		isReal = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'E' || l.ch == 'e' {
		isReal = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position], isReal
}

// readString reads a string literal enclosed in single quotes. A doubled
// quote ('') inside the literal is the escape for one literal quote.
func (l *Lexer) readString() (string, error) {
	line := l.line
	column := l.column
	var out []byte
	for {
		l.readChar()
		if l.ch == 0 {
			return "", &LexError{Line: line, Column: column, Byte: 0, Reason: "unterminated string"}
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				out = append(out, '\'')
				l.readChar()
				continue
			}
			break
		}
		out = append(out, l.ch)
	}
	return string(out), nil
}

// readEnum reads an enumeration literal enclosed in dots (.ELEMENT.)
func (l *Lexer) readEnum() (string, error) {
	line := l.line
	column := l.column
	position := l.position + 1 // skip opening dot
	for {
		l.readChar()
		if l.ch == '.' {
			break
		}
		if !isLetter(l.ch) && !isDigit(l.ch) && l.ch != '_' {
			return "", &LexError{Line: line, Column: column, Byte: l.ch, Reason: "malformed enumeration literal"}
		}
	}
	return l.input[position:l.position], nil
}

// NextToken returns the next token
func (l *Lexer) NextToken() (*Token, error) {
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '*' {
			l.skipComment()
		} else {
			break
		}
	}

	line := l.line
	column := l.column

	switch {
	case l.ch == 0:
		return &Token{Type: TOKEN_EOF, Value: "", Line: line, Column: column}, nil

	case l.ch == '=':
		l.readChar()
		return &Token{Type: TOKEN_EQUALS, Value: "=", Line: line, Column: column}, nil

	case l.ch == '(':
		l.readChar()
		return &Token{Type: TOKEN_LPAREN, Value: "(", Line: line, Column: column}, nil

	case l.ch == ')':
		l.readChar()
		return &Token{Type: TOKEN_RPAREN, Value: ")", Line: line, Column: column}, nil

	case l.ch == ',':
		l.readChar()
		return &Token{Type: TOKEN_COMMA, Value: ",", Line: line, Column: column}, nil

	case l.ch == ';':
		l.readChar()
		return &Token{Type: TOKEN_SEMICOLON, Value: ";", Line: line, Column: column}, nil

	case l.ch == '$':
		l.readChar()
		return &Token{Type: TOKEN_OMITTED, Value: "$", Line: line, Column: column}, nil

	case l.ch == '*':
		l.readChar()
		return &Token{Type: TOKEN_DERIVED, Value: "*", Line: line, Column: column}, nil

	case l.ch == '#':
		l.readChar()
		if !isDigit(l.ch) {
			return nil, &LexError{Line: line, Column: column, Byte: l.ch, Reason: "expected digits after '#'"}
		}
		position := l.position
		for isDigit(l.ch) {
			l.readChar()
		}
		value := l.input[position:l.position]
		// A '#n' followed by '=' opens an instance definition; anywhere
		// else it is a reference.
		tokenType := TOKEN_REFERENCE
		if l.peekNonSpace() == '=' {
			tokenType = TOKEN_INSTANCE_ID
		}
		return &Token{Type: tokenType, Value: value, Line: line, Column: column}, nil

	case l.ch == '\'':
		value, err := l.readString()
		if err != nil {
			return nil, err
		}
		l.readChar() // skip closing quote
		return &Token{Type: TOKEN_STRING, Value: value, Line: line, Column: column}, nil

	case l.ch == '.':
		value, err := l.readEnum()
		if err != nil {
			return nil, err
		}
		l.readChar() // skip closing dot
		return &Token{Type: TOKEN_ENUM, Value: value, Line: line, Column: column}, nil

	case isDigit(l.ch) || ((l.ch == '-' || l.ch == '+') && isDigit(l.peekChar())):
		value, isReal := l.readNumber()
		tokenType := TOKEN_INTEGER
		if isReal {
			tokenType = TOKEN_REAL
		}
		return &Token{Type: tokenType, Value: value, Line: line, Column: column}, nil

	case isLetter(l.ch):
		value := l.readKeyword()
		return &Token{Type: TOKEN_KEYWORD, Value: value, Line: line, Column: column}, nil

	default:
		b := l.ch
		return nil, &LexError{Line: line, Column: column, Byte: b, Reason: "unrecognized character"}
	}
}

// peekNonSpace returns the first character at or after the current position
// that is not whitespace, without advancing.
func (l *Lexer) peekNonSpace() byte {
	for i := l.position; i < len(l.input); i++ {
		c := l.input[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		return c
	}
	return 0
}

// isLetter checks if a character is an ASCII letter
func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isDigit checks if a character is a digit
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
