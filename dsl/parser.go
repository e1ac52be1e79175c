package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	deckLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][,:;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	deckParser = participle.MustBuild[File](
		participle.Lexer(deckLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// File is the root AST node of a deck file:
//
//	deck PartyMix {
//	  meta   { title: "Party" }
//	  layout { columns: 4 margin: 4mm theme: bw-dotgrid }
//	  font title { src: "embed:Go-Italic.ttf" }
//	  track  { title: "Smooth Operator" artist: "Sade" year: 1984 url: "https://..." }
//	}
type File struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'deck' @Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one top-level block of a deck.
type Section struct {
	Meta   *MetaSection   `parser:"  @@"`
	Layout *LayoutSection `parser:"| @@"`
	Font   *FontSection   `parser:"| @@"`
	Track  *TrackSection  `parser:"| @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Layout != nil:
		return "layout"
	case s.Font != nil:
		return "font"
	case s.Track != nil:
		return "track"
	default:
		return "unknown"
	}
}

// MetaSection captures document metadata (title, author, keywords).
type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

// LayoutSection captures layout settings.
type LayoutSection struct {
	Block *Block `parser:"'layout' @@"`
}

// FontSection assigns a font to a text role (artist/title/year).
type FontSection struct {
	Role  string `parser:"'font' @Ident"`
	Block *Block `parser:"@@"`
}

// TrackSection describes a single card.
type TrackSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Block *Block         `parser:"'track' @@"`
}

// Block is a delimited list of assignments.
type Block struct {
	Assignments []*Assignment `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Get returns the value assigned to key, the last assignment wins.
func (b *Block) Get(key string) (*Value, bool) {
	if b == nil {
		return nil, false
	}
	var found *Value
	for _, a := range b.Assignments {
		if a.Key == key {
			found = a.Value
		}
	}
	return found, found != nil
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' Newline* @@"`
}

// Value represents a property value.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Ident  *string        `parser:"| @Ident"`
	Array  *ArrayValue    `parser:"| @@"`
}

// Text returns the value as plain text; arrays are joined with ", ".
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Ident != nil:
		return *v.Ident
	case v.Array != nil:
		return strings.Join(v.Array.Texts(), ", ")
	default:
		return ""
	}
}

// ArrayValue captures `[ ... ]` expressions.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Texts returns the textual form of every element.
func (a *ArrayValue) Texts() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.Values))
	for _, v := range a.Values {
		out = append(out, v.Text())
	}
	return out
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a deck from an io.Reader. filename is only used in error positions.
func Parse(filename string, r io.Reader) (*File, error) {
	return deckParser.Parse(filename, r)
}

// ParseString parses deck content from a string.
func ParseString(input string) (*File, error) {
	return deckParser.ParseString("", input)
}
