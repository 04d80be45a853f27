package parser

import "fmt"

// LexError reports an unrecognized or malformed byte in the input.
// Lex errors are fatal for the file being parsed.
type LexError struct {
	Line   int
	Column int
	Byte   byte
	Reason string
}

func (e *LexError) Error() string {
	if e.Byte == 0 {
		return fmt.Sprintf("lex error at %d:%d: %s", e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("lex error at %d:%d: %s (%q)", e.Line, e.Column, e.Reason, e.Byte)
}

// ParseError reports a structural error in the token stream, with the
// expected-vs-found contract for diagnostics. Parse errors are fatal for the
// file being parsed.
type ParseError struct {
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: expected %s, found %s", e.Line, e.Column, e.Expected, e.Found)
}

// DanglingReferenceError reports a reference to an instance id that does not
// exist in the file. References are never silently treated as null.
type DanglingReferenceError struct {
	EntityID int64 // Entity holding the reference
	Position int   // Zero-based attribute position
	TargetID int64 // Referenced id that is absent
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("entity #%d attribute %d references missing instance #%d", e.EntityID, e.Position, e.TargetID)
}
