package parser

import (
	"sort"
	"strconv"
	"strings"

	"github.com/asakaida/ifcheck/internal/entities"
)

// Parser consumes the token stream of a STEP physical file and builds the
// entity graph. Parsing is two-phase: all instance records are built first
// with unresolved reference slots, then every reference is resolved against
// the id index. A file is a flat list of instances referencing each other by
// id regardless of declaration order, so resolution cannot happen inline.
type Parser struct {
	lexer   *Lexer
	current *Token
	peek    *Token
}

// NewParser creates a new Parser
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// advance moves to the next token
func (p *Parser) advance() error {
	p.current = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

// currentIs checks if the current token is of the given type
func (p *Parser) currentIs(t TokenType) bool {
	return p.current != nil && p.current.Type == t
}

// expect consumes the current token if it has the given type, or fails with
// an expected-vs-found ParseError.
func (p *Parser) expect(t TokenType) (*Token, error) {
	if !p.currentIs(t) {
		return nil, p.errExpected(tokenNames[t])
	}
	tok := p.current
	if err := p.advance(); err != nil {
		return nil, err
	}
	return tok, nil
}

// expectKeyword consumes the current token if it is the given keyword
func (p *Parser) expectKeyword(kw string) error {
	if !p.currentIs(TOKEN_KEYWORD) || !strings.EqualFold(p.current.Value, kw) {
		return p.errExpected("'" + kw + "'")
	}
	return p.advance()
}

// errExpected builds a ParseError against the current token
func (p *Parser) errExpected(expected string) error {
	found := "EOF"
	line, column := 0, 0
	if p.current != nil {
		found = p.current.String()
		line, column = p.current.Line, p.current.Column
	}
	return &ParseError{Line: line, Column: column, Expected: expected, Found: found}
}

// Parse parses the entire file and returns the resolved entity graph
func (p *Parser) Parse() (*entities.Graph, error) {
	// Prime current and peek
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("ISO-10303-21"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
		return nil, err
	}

	header, err := p.parseHeaderSection()
	if err != nil {
		return nil, err
	}

	schemaVersion, err := schemaFromHeader(header)
	if err != nil {
		return nil, err
	}

	ents, err := p.parseDataSection()
	if err != nil {
		return nil, err
	}

	if err := p.expectKeyword("END-ISO-10303-21"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
		return nil, err
	}
	if !p.currentIs(TOKEN_EOF) {
		return nil, p.errExpected("EOF")
	}

	// Phase 2: every reference slot must name an existing instance
	if err := resolveReferences(ents); err != nil {
		return nil, err
	}

	return entities.NewGraph(schemaVersion, header, ents), nil
}

// parseHeaderSection parses HEADER; <records> ENDSEC;
func (p *Parser) parseHeaderSection() ([]*entities.HeaderRecord, error) {
	if err := p.expectKeyword("HEADER"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
		return nil, err
	}

	var records []*entities.HeaderRecord
	for p.currentIs(TOKEN_KEYWORD) && !strings.EqualFold(p.current.Value, "ENDSEC") {
		keyword := strings.ToUpper(p.current.Value)
		if err := p.advance(); err != nil {
			return nil, err
		}
		attrs, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
			return nil, err
		}
		records = append(records, &entities.HeaderRecord{Keyword: keyword, Attributes: attrs})
	}

	if err := p.expectKeyword("ENDSEC"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
		return nil, err
	}
	return records, nil
}

// parseDataSection parses DATA; <instance records> ENDSEC;
func (p *Parser) parseDataSection() (map[int64]*entities.Entity, error) {
	if err := p.expectKeyword("DATA"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
		return nil, err
	}

	ents := make(map[int64]*entities.Entity)
	for p.currentIs(TOKEN_INSTANCE_ID) {
		idTok := p.current
		id, err := strconv.ParseInt(idTok.Value, 10, 64)
		if err != nil || id <= 0 {
			return nil, &ParseError{Line: idTok.Line, Column: idTok.Column, Expected: "positive instance id", Found: "#" + idTok.Value}
		}
		if _, exists := ents[id]; exists {
			return nil, &ParseError{Line: idTok.Line, Column: idTok.Column, Expected: "unique instance id", Found: "duplicate #" + idTok.Value}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_EQUALS); err != nil {
			return nil, err
		}
		typeTok, err := p.expect(TOKEN_KEYWORD)
		if err != nil {
			return nil, err
		}
		attrs, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
			return nil, err
		}
		ents[id] = &entities.Entity{
			ID:         id,
			Type:       strings.ToUpper(typeTok.Value),
			Attributes: attrs,
		}
	}

	if err := p.expectKeyword("ENDSEC"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
		return nil, err
	}
	return ents, nil
}

// parseArgList parses ( value, value, ... ) and returns the values
func (p *Parser) parseArgList() ([]entities.Value, error) {
	if _, err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}
	var values []entities.Value
	if p.currentIs(TOKEN_RPAREN) {
		return values, p.advance()
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.currentIs(TOKEN_COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}
	return values, nil
}

// parseValue parses one attribute value
func (p *Parser) parseValue() (entities.Value, error) {
	switch {
	case p.currentIs(TOKEN_STRING):
		v := &entities.StringValue{Val: p.current.Value}
		return v, p.advance()

	case p.currentIs(TOKEN_INTEGER):
		n, err := strconv.ParseInt(p.current.Value, 10, 64)
		if err != nil {
			return nil, p.errExpected("integer literal")
		}
		return &entities.IntValue{Val: n}, p.advance()

	case p.currentIs(TOKEN_REAL):
		f, err := strconv.ParseFloat(p.current.Value, 64)
		if err != nil {
			return nil, p.errExpected("real literal")
		}
		return &entities.RealValue{Val: f}, p.advance()

	case p.currentIs(TOKEN_ENUM):
		switch p.current.Value {
		case "T":
			return &entities.BoolValue{Val: true}, p.advance()
		case "F":
			return &entities.BoolValue{Val: false}, p.advance()
		default:
			v := &entities.EnumValue{Val: p.current.Value}
			return v, p.advance()
		}

	case p.currentIs(TOKEN_REFERENCE):
		id, err := strconv.ParseInt(p.current.Value, 10, 64)
		if err != nil || id <= 0 {
			return nil, p.errExpected("positive instance reference")
		}
		return &entities.RefValue{ID: id}, p.advance()

	case p.currentIs(TOKEN_OMITTED):
		return &entities.OmittedValue{}, p.advance()

	case p.currentIs(TOKEN_DERIVED):
		return &entities.DerivedValue{}, p.advance()

	case p.currentIs(TOKEN_LPAREN):
		if err := p.advance(); err != nil {
			return nil, err
		}
		list := &entities.ListValue{}
		if p.currentIs(TOKEN_RPAREN) {
			return list, p.advance()
		}
		for {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			list.Elements = append(list.Elements, v)
			if p.currentIs(TOKEN_COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		return list, nil

	case p.currentIs(TOKEN_KEYWORD):
		// Wrapped simple type, e.g. IFCLABEL('FireRating')
		typeName := strings.ToUpper(p.current.Value)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_LPAREN); err != nil {
			return nil, err
		}
		inner, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		return &entities.TypedValue{Type: typeName, Inner: inner}, nil

	default:
		return nil, p.errExpected("attribute value")
	}
}

// schemaFromHeader extracts the schema version from the FILE_SCHEMA record.
// FILE_SCHEMA holds a list of schema identifiers; the first one selects the
// registry version for the whole file.
func schemaFromHeader(header []*entities.HeaderRecord) (string, error) {
	for _, rec := range header {
		if rec.Keyword != "FILE_SCHEMA" {
			continue
		}
		if len(rec.Attributes) != 1 {
			break
		}
		list, ok := rec.Attributes[0].(*entities.ListValue)
		if !ok || len(list.Elements) == 0 {
			break
		}
		s, ok := list.Elements[0].(*entities.StringValue)
		if !ok || s.Val == "" {
			break
		}
		return strings.ToUpper(s.Val), nil
	}
	return "", &ParseError{Expected: "FILE_SCHEMA record with one schema identifier", Found: "none"}
}

// resolveReferences verifies every reference slot against the id index.
// Entities are walked in ascending id order so the surfaced diagnostic is
// the same on every run.
func resolveReferences(ents map[int64]*entities.Entity) error {
	ids := make([]int64, 0, len(ents))
	for id := range ents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := ents[id]
		for pos, v := range e.Attributes {
			if err := checkRefs(ents, e.ID, pos, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkRefs walks one value recursively and fails on the first reference
// whose target id is absent from the index.
func checkRefs(ents map[int64]*entities.Entity, owner int64, pos int, v entities.Value) error {
	switch val := v.(type) {
	case *entities.RefValue:
		if _, ok := ents[val.ID]; !ok {
			return &DanglingReferenceError{EntityID: owner, Position: pos, TargetID: val.ID}
		}
	case *entities.ListValue:
		for _, e := range val.Elements {
			if err := checkRefs(ents, owner, pos, e); err != nil {
				return err
			}
		}
	case *entities.TypedValue:
		return checkRefs(ents, owner, pos, val.Inner)
	}
	return nil
}
