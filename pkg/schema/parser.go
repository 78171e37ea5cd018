package schema

import (
	"fmt"
	"strconv"
)

// Parser parses schema source code into an AST.
type Parser struct {
	lexer    *Lexer
	current  Token
	previous Token
	errors   []ParseError
	comments []*Comment // Collected comments
}

// ParseError represents a parsing error.
type ParseError struct {
	Position Position
	Message  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Position.Filename, e.Position.Line, e.Position.Column, e.Message)
}

// NewParser creates a new parser for the given input.
func NewParser(filename, input string) *Parser {
	p := &Parser{
		lexer: NewLexer(filename, input),
	}
	p.advance() // Load first token
	return p
}

// Parse parses the entire schema file. It never panics; malformed input
// yields a list of errors and a partial schema.
func (p *Parser) Parse() (*Schema, []ParseError) {
	schema := &Schema{
		Position: p.current.Position,
	}

	p.collectComments()

	if p.check(TokenPackage) {
		pkg, err := p.parsePackage()
		if err != nil {
			p.errors = append(p.errors, *err)
			p.synchronize()
		} else {
			schema.Package = pkg
		}
	}

	for !p.check(TokenEOF) {
		p.collectComments()

		switch {
		case p.check(TokenImport):
			imp, err := p.parseImport()
			if err != nil {
				p.errors = append(p.errors, *err)
				p.synchronize()
			} else {
				schema.Imports = append(schema.Imports, imp)
			}
		case p.check(TokenOption):
			opt, err := p.parseOption()
			if err != nil {
				p.errors = append(p.errors, *err)
				p.synchronize()
			} else {
				schema.Options = append(schema.Options, opt)
			}
		case p.check(TokenStruct):
			st, err := p.parseStruct()
			if err != nil {
				p.errors = append(p.errors, *err)
				p.synchronize()
			} else {
				schema.Structs = append(schema.Structs, st)
			}
		case p.check(TokenEnum):
			enum, err := p.parseEnum()
			if err != nil {
				p.errors = append(p.errors, *err)
				p.synchronize()
			} else {
				schema.Enums = append(schema.Enums, enum)
			}
		case p.check(TokenEOF):
		case p.check(TokenError):
			p.errors = append(p.errors, *p.error(p.current.Value))
			p.advance()
		default:
			p.errors = append(p.errors, ParseError{
				Position: p.current.Position,
				Message:  fmt.Sprintf("unexpected token: %s", p.current),
			})
			p.advance()
		}
	}

	schema.Comments = p.comments
	return schema, p.errors
}

// parsePackage parses: 'package' identifier ';'
func (p *Parser) parsePackage() (*Package, *ParseError) {
	startPos := p.current.Position
	p.advance() // consume 'package'

	if !p.check(TokenIdent) {
		return nil, p.error("expected package name")
	}
	name := p.current.Value
	p.advance()

	endPos := p.current.Position
	if !p.consume(TokenSemicolon) {
		return nil, p.error("expected ';' after package name")
	}

	return &Package{
		Position: startPos,
		EndPos:   endPos,
		Name:     name,
	}, nil
}

// parseImport parses: 'import' string ';'
func (p *Parser) parseImport() (*Import, *ParseError) {
	startPos := p.current.Position
	p.advance() // consume 'import'

	if !p.check(TokenString) {
		return nil, p.error("expected import path string")
	}
	path := p.current.Value
	p.advance()

	endPos := p.current.Position
	if !p.consume(TokenSemicolon) {
		return nil, p.error("expected ';' after import")
	}

	return &Import{
		Position: startPos,
		EndPos:   endPos,
		Path:     path,
	}, nil
}

// parseOption parses: 'option' identifier '=' value ';'
func (p *Parser) parseOption() (*Option, *ParseError) {
	startPos := p.current.Position
	p.advance() // consume 'option'

	if !p.check(TokenIdent) {
		return nil, p.error("expected option name")
	}
	name := p.current.Value
	p.advance()

	if !p.consume(TokenEquals) {
		return nil, p.error("expected '=' after option name")
	}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	endPos := p.current.Position
	if !p.consume(TokenSemicolon) {
		return nil, p.error("expected ';' after option")
	}

	return &Option{
		Position: startPos,
		EndPos:   endPos,
		Name:     name,
		Value:    value,
	}, nil
}

// parseValue parses a string, integer or bool literal.
func (p *Parser) parseValue() (Value, *ParseError) {
	startPos := p.current.Position
	endPos := startPos
	endPos.Column += len(p.current.Value)

	switch p.current.Type {
	case TokenString:
		value := p.current.Value
		endPos.Column += 2 // quotes
		p.advance()
		return &StringValue{Position: startPos, EndPos: endPos, Value: value}, nil

	case TokenInt:
		n, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		return &NumberValue{Position: startPos, EndPos: endPos, Value: n}, nil

	case TokenTrue, TokenFalse:
		value := p.current.Type == TokenTrue
		p.advance()
		return &BoolValue{Position: startPos, EndPos: endPos, Value: value}, nil

	default:
		return nil, p.error("expected value")
	}
}

// parseInt consumes an integer literal that fits in an int32.
func (p *Parser) parseInt() (int, *ParseError) {
	n, err := strconv.ParseInt(p.current.Value, 0, 32)
	if err != nil {
		return 0, p.error(fmt.Sprintf("invalid integer %q", p.current.Value))
	}
	p.advance()
	return int(n), nil
}

// parseStruct parses: 'struct' identifier '{' field* '}'
func (p *Parser) parseStruct() (*StructDef, *ParseError) {
	docComments := p.getDocComments()
	startPos := p.current.Position
	p.advance() // consume 'struct'

	if !p.check(TokenIdent) {
		return nil, p.error("expected struct name")
	}
	name := p.current.Value
	p.advance()

	fields, endPos, err := p.parseFieldBlock("struct name")
	if err != nil {
		return nil, err
	}

	return &StructDef{
		Position: startPos,
		EndPos:   endPos,
		Name:     name,
		Fields:   fields,
		Comments: docComments,
	}, nil
}

// parseFieldBlock parses: '{' field* '}'
func (p *Parser) parseFieldBlock(after string) ([]*Field, Position, *ParseError) {
	if !p.consume(TokenLBrace) {
		return nil, Position{}, p.error("expected '{' after " + after)
	}

	var fields []*Field
	for {
		p.collectComments()
		if p.check(TokenRBrace) || p.check(TokenEOF) {
			break
		}
		field, err := p.parseField()
		if err != nil {
			return nil, Position{}, err
		}
		fields = append(fields, field)
	}

	endPos := p.current.Position
	if !p.consume(TokenRBrace) {
		return nil, Position{}, p.error("expected '}'")
	}
	return fields, endPos, nil
}

// parseField parses: identifier ':' type ('[' fieldOption (',' fieldOption)* ']')? ';'
func (p *Parser) parseField() (*Field, *ParseError) {
	docComments := p.getDocComments()
	startPos := p.current.Position

	if !p.check(TokenIdent) {
		return nil, p.error("expected field name")
	}
	name := p.current.Value
	p.advance()

	if !p.consume(TokenColon) {
		return nil, p.error("expected ':' after field name")
	}

	typeRef, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}

	field := &Field{
		Position: startPos,
		Name:     name,
		Type:     typeRef,
		Comments: docComments,
	}

	if p.check(TokenLBracket) {
		if err := p.parseFieldOptions(field); err != nil {
			return nil, err
		}
	}

	field.EndPos = p.current.Position
	if !p.consume(TokenSemicolon) {
		return nil, p.error("expected ';' after field")
	}
	return field, nil
}

// parseFieldOptions parses: '[' ('width' | 'count') '=' int (',' ...)* ']'
func (p *Parser) parseFieldOptions(field *Field) *ParseError {
	p.advance() // consume '['

	for !p.check(TokenRBracket) && !p.check(TokenEOF) {
		if !p.check(TokenIdent) {
			return p.error("expected field option name")
		}
		key := p.current.Value
		keyErr := p.error(fmt.Sprintf("unknown field option %q", key))
		p.advance()

		if !p.consume(TokenEquals) {
			return p.error("expected '=' after field option name")
		}
		if !p.check(TokenInt) {
			return p.error("expected integer field option value")
		}
		n, err := p.parseInt()
		if err != nil {
			return err
		}

		switch key {
		case "width":
			field.Width = n
		case "count":
			field.Count = n
		default:
			return keyErr
		}

		if !p.check(TokenRBracket) && !p.consume(TokenComma) {
			return p.error("expected ',' or ']'")
		}
	}

	if !p.consume(TokenRBracket) {
		return p.error("expected ']'")
	}
	return nil
}

// parseTypeRef parses a type: '?' type | '[' ']' type | '[' int ']' type | name
func (p *Parser) parseTypeRef() (TypeRef, *ParseError) {
	startPos := p.current.Position

	switch p.current.Type {
	case TokenQuestion:
		p.advance()
		elem, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		return &OptionalType{Position: startPos, EndPos: elem.End(), Element: elem}, nil

	case TokenLBracket:
		p.advance()
		size := 0
		if p.check(TokenInt) {
			n, err := p.parseInt()
			if err != nil {
				return nil, err
			}
			if n <= 0 {
				return nil, &ParseError{Position: startPos, Message: "array size must be positive"}
			}
			size = n
		}
		if !p.consume(TokenRBracket) {
			return nil, p.error("expected ']' in type")
		}
		elem, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		if size > 0 {
			return &ArrayType{Position: startPos, EndPos: elem.End(), Element: elem, Size: size}, nil
		}
		return &SequenceType{Position: startPos, EndPos: elem.End(), Element: elem}, nil

	case TokenIdent:
		name := p.current.Value
		endPos := p.current.Position
		endPos.Column += len(name)
		p.advance()

		if p.check(TokenDot) {
			p.advance()
			if !p.check(TokenIdent) {
				return nil, p.error("expected type name after '.'")
			}
			pkg := name
			name = p.current.Value
			endPos = p.current.Position
			endPos.Column += len(name)
			p.advance()
			return &NamedType{Position: startPos, EndPos: endPos, Package: pkg, Name: name}, nil
		}

		if IsScalar(name) {
			return &ScalarType{Position: startPos, EndPos: endPos, Name: name}, nil
		}
		return &NamedType{Position: startPos, EndPos: endPos, Name: name}, nil

	default:
		return nil, p.error("expected type")
	}
}

// parseEnum parses: 'enum' identifier '{' variant* '}'
func (p *Parser) parseEnum() (*EnumDef, *ParseError) {
	docComments := p.getDocComments()
	startPos := p.current.Position
	p.advance() // consume 'enum'

	if !p.check(TokenIdent) {
		return nil, p.error("expected enum name")
	}
	name := p.current.Value
	p.advance()

	if !p.consume(TokenLBrace) {
		return nil, p.error("expected '{' after enum name")
	}

	var variants []*VariantDef
	for {
		p.collectComments()
		if p.check(TokenRBrace) || p.check(TokenEOF) {
			break
		}
		v, err := p.parseVariant()
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}

	endPos := p.current.Position
	if !p.consume(TokenRBrace) {
		return nil, p.error("expected '}'")
	}

	return &EnumDef{
		Position: startPos,
		EndPos:   endPos,
		Name:     name,
		Variants: variants,
		Comments: docComments,
	}, nil
}

// parseVariant parses: identifier ';' | identifier '{' field* '}'
func (p *Parser) parseVariant() (*VariantDef, *ParseError) {
	docComments := p.getDocComments()
	startPos := p.current.Position

	if !p.check(TokenIdent) {
		return nil, p.error("expected variant name")
	}
	name := p.current.Value
	p.advance()

	v := &VariantDef{
		Position: startPos,
		Name:     name,
		Comments: docComments,
	}

	if p.check(TokenSemicolon) {
		v.EndPos = p.current.Position
		v.Unit = true
		p.advance()
		return v, nil
	}

	fields, endPos, err := p.parseFieldBlock("variant name")
	if err != nil {
		return nil, err
	}
	v.Fields = fields
	v.EndPos = endPos
	return v, nil
}

// Helper methods

func (p *Parser) advance() {
	p.previous = p.current
	p.current = p.lexer.Next()

	// Skip regular comments, but remember doc comments
	for p.current.Type == TokenComment {
		p.current = p.lexer.Next()
	}
}

func (p *Parser) check(typ TokenType) bool {
	return p.current.Type == typ
}

func (p *Parser) consume(typ TokenType) bool {
	if p.check(typ) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) error(msg string) *ParseError {
	if p.current.Type == TokenError {
		msg = p.current.Value
	}
	return &ParseError{
		Position: p.current.Position,
		Message:  msg,
	}
}

// synchronize skips tokens until we find a likely sync point.
func (p *Parser) synchronize() {
	for !p.check(TokenEOF) {
		if p.previous.Type == TokenSemicolon || p.previous.Type == TokenRBrace {
			return
		}
		switch p.current.Type {
		case TokenPackage, TokenImport, TokenOption, TokenStruct, TokenEnum:
			return
		}
		p.advance()
	}
}

// collectComments collects doc comments preceding the current position.
func (p *Parser) collectComments() {
	for p.current.Type == TokenDocComment || p.current.Type == TokenComment {
		if p.current.Type == TokenDocComment {
			p.comments = append(p.comments, &Comment{
				Position: p.current.Position,
				EndPos:   p.current.Position,
				Text:     p.current.Value,
				IsDoc:    true,
			})
		}
		p.current = p.lexer.Next()
	}
}

// getDocComments returns the doc comments collected since the last
// declaration.
func (p *Parser) getDocComments() []*Comment {
	if len(p.comments) == 0 {
		return nil
	}
	result := make([]*Comment, len(p.comments))
	copy(result, p.comments)
	p.comments = nil
	return result
}

// ParseFile is a convenience function that parses a schema file.
func ParseFile(filename, input string) (*Schema, []ParseError) {
	parser := NewParser(filename, input)
	return parser.Parse()
}
