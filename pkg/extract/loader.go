// Package extract recovers PADE schemas from Go source code.
//
// Structs are read from the type checker. Enum variant order is not part
// of a Go type, so it is recovered from the pade.RegisterEnum family of
// calls found in the loaded syntax.
package extract

import (
	"fmt"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// PadePath is the import path whose registration calls define enums.
const PadePath = "github.com/blockberries/pade/pkg/pade"

// PackageLoader loads Go packages for analysis.
type PackageLoader struct {
	config *packages.Config
}

// NewPackageLoader creates a new package loader.
func NewPackageLoader() *PackageLoader {
	return &PackageLoader{
		config: &packages.Config{
			Mode: packages.NeedName |
				packages.NeedTypes |
				packages.NeedTypesInfo |
				packages.NeedSyntax |
				packages.NeedImports |
				packages.NeedDeps,
		},
	}
}

// Load loads packages matching the given patterns.
func (l *PackageLoader) Load(patterns []string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(l.config, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, err := range pkg.Errors {
			errs = append(errs, err)
		}
	})

	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs[0])
	}

	return pkgs, nil
}

// TypeInfo describes a struct found in the loaded packages.
type TypeInfo struct {
	Name    string
	PkgPath string
	Doc     string
	Fields  []*FieldInfo
	GoType  types.Type
}

// FieldInfo describes one encoded struct field.
type FieldInfo struct {
	Name   string
	GoType types.Type
	Doc    string
	Width  int
	Count  int
}

// EnumInfo describes an enum recovered from a registration call.
type EnumInfo struct {
	Name    string
	PkgPath string
	Doc     string
	GoType  types.Type

	// Unit enums are integer types registered with a variant count.
	Unit  bool
	Count int

	// Variants lists variant structs in tag order. Empty for unit enums.
	Variants []*TypeInfo

	// Values names the constants of a unit enum by tag.
	Values map[int64]string

	// Position of the registration call, for diagnostics.
	Position string
}

// FieldTag is a parsed pade struct tag.
type FieldTag struct {
	Width int
	Count int
	Skip  bool
}

// extractDoc extracts documentation from an AST node.
func extractDoc(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return cg.Text()
}
