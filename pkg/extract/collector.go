package extract

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/types"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Config configures the type collector.
type Config struct {
	IncludePrivate  bool     // Include unexported types
	IncludePatterns []string // Type name patterns to include (glob)
	ExcludePatterns []string // Type name patterns to exclude (glob)
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// TypeCollector collects type information from Go packages.
type TypeCollector struct {
	packages []*packages.Package
	config   *Config
	types    map[string]*TypeInfo
	enums    map[string]*EnumInfo
	docs     map[string]string
	errors   []error
}

// NewTypeCollector creates a new type collector.
func NewTypeCollector(pkgs []*packages.Package, cfg *Config) *TypeCollector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &TypeCollector{
		packages: pkgs,
		config:   cfg,
		types:    make(map[string]*TypeInfo),
		enums:    make(map[string]*EnumInfo),
		docs:     make(map[string]string),
	}
}

// Collect analyzes all packages. Enum registrations are collected first so
// that types acting as enums or variants are not reported as structs.
func (c *TypeCollector) Collect() error {
	for _, pkg := range c.packages {
		c.collectDocs(pkg)
	}
	for _, pkg := range c.packages {
		c.collectRegistrations(pkg)
	}
	if len(c.errors) > 0 {
		return c.errors[0]
	}
	for _, pkg := range c.packages {
		c.collectStructs(pkg)
		c.collectUnitValues(pkg)
	}
	if len(c.errors) > 0 {
		return c.errors[0]
	}
	return nil
}

// Types returns collected struct types keyed by qualified name.
func (c *TypeCollector) Types() map[string]*TypeInfo {
	return c.types
}

// Enums returns collected enums keyed by qualified name.
func (c *TypeCollector) Enums() map[string]*EnumInfo {
	return c.enums
}

func (c *TypeCollector) collectDocs(pkg *packages.Package) {
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range genDecl.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					doc := extractDoc(s.Doc)
					if doc == "" && len(genDecl.Specs) == 1 {
						doc = extractDoc(genDecl.Doc)
					}
					c.docs[pkg.PkgPath+"."+s.Name.Name] = strings.TrimSpace(doc)
				case *ast.ValueSpec:
					doc := strings.TrimSpace(extractDoc(s.Doc))
					if doc == "" {
						doc = strings.TrimSpace(extractDoc(s.Comment))
					}
					for _, name := range s.Names {
						c.docs[pkg.PkgPath+"."+name.Name] = doc
					}
				}
			}
		}
	}
}

// collectRegistrations finds calls such as
//
//	pade.MustRegisterEnum[Shape](Circle{}, Square{})
//	pade.RegisterUnitEnum[Kind](3)
//
// and records the enum type with its variants in argument order.
func (c *TypeCollector) collectRegistrations(pkg *packages.Package) {
	for _, file := range pkg.Syntax {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			name, typeArg, ok := c.registrationCall(pkg, call)
			if !ok {
				return true
			}
			c.addRegistration(pkg, call, name, typeArg)
			return true
		})
	}
}

// registrationCall matches a call to one of the pade registration
// functions with an explicit type argument.
func (c *TypeCollector) registrationCall(pkg *packages.Package, call *ast.CallExpr) (string, ast.Expr, bool) {
	index, ok := call.Fun.(*ast.IndexExpr)
	if !ok {
		return "", nil, false
	}
	var ident *ast.Ident
	switch fn := index.X.(type) {
	case *ast.SelectorExpr:
		ident = fn.Sel
	case *ast.Ident:
		ident = fn
	default:
		return "", nil, false
	}
	obj, ok := pkg.TypesInfo.Uses[ident].(*types.Func)
	if !ok || obj.Pkg() == nil || obj.Pkg().Path() != PadePath {
		return "", nil, false
	}
	switch obj.Name() {
	case "RegisterEnum", "MustRegisterEnum", "RegisterUnitEnum", "MustRegisterUnitEnum":
		return obj.Name(), index.Index, true
	}
	return "", nil, false
}

func (c *TypeCollector) addRegistration(pkg *packages.Package, call *ast.CallExpr, fn string, typeArg ast.Expr) {
	pos := pkg.Fset.Position(call.Pos()).String()
	enumType := pkg.TypesInfo.TypeOf(typeArg)
	named, ok := enumType.(*types.Named)
	if !ok {
		c.errors = append(c.errors, fmt.Errorf("%s: enum type %s is not a named type", pos, enumType))
		return
	}
	obj := named.Obj()
	if !c.include(obj) {
		return
	}
	key := qualifiedName(obj)
	if prev, ok := c.enums[key]; ok {
		c.errors = append(c.errors, fmt.Errorf("%s: enum %s already registered at %s", pos, obj.Name(), prev.Position))
		return
	}

	info := &EnumInfo{
		Name:     obj.Name(),
		PkgPath:  obj.Pkg().Path(),
		GoType:   named,
		Position: pos,
	}

	if strings.HasSuffix(fn, "UnitEnum") {
		if len(call.Args) != 1 {
			c.errors = append(c.errors, fmt.Errorf("%s: %s takes one argument", pos, fn))
			return
		}
		tv := pkg.TypesInfo.Types[call.Args[0]]
		if tv.Value == nil || tv.Value.Kind() != constant.Int {
			c.errors = append(c.errors, fmt.Errorf("%s: variant count of %s is not a constant", pos, obj.Name()))
			return
		}
		n, exact := constant.Int64Val(tv.Value)
		if !exact || n < 1 {
			c.errors = append(c.errors, fmt.Errorf("%s: invalid variant count %s", pos, tv.Value))
			return
		}
		info.Unit = true
		info.Count = int(n)
		info.Values = make(map[int64]string)
	} else {
		for _, arg := range call.Args {
			vt := pkg.TypesInfo.TypeOf(unwrapConversion(pkg, arg))
			if ptr, ok := vt.(*types.Pointer); ok {
				vt = ptr.Elem()
			}
			named, ok := vt.(*types.Named)
			if !ok {
				c.errors = append(c.errors, fmt.Errorf("%s: variant %s of %s is not a named type", pos, vt, obj.Name()))
				return
			}
			st, ok := named.Underlying().(*types.Struct)
			if !ok {
				c.errors = append(c.errors, fmt.Errorf("%s: variant %s of %s is not a struct", pos, vt, obj.Name()))
				return
			}
			variant, err := c.structInfo(named.Obj(), st)
			if err != nil {
				c.errors = append(c.errors, fmt.Errorf("%s: %w", pos, err))
				return
			}
			info.Variants = append(info.Variants, variant)
		}
		info.Count = len(info.Variants)
	}

	c.enums[key] = info
}

// unwrapConversion strips a conversion to the enum interface, such as
// Shape(Circle{}), so the variant's own type is seen.
func unwrapConversion(pkg *packages.Package, e ast.Expr) ast.Expr {
	call, ok := e.(*ast.CallExpr)
	if !ok || len(call.Args) != 1 {
		return e
	}
	if tv, ok := pkg.TypesInfo.Types[call.Fun]; ok && tv.IsType() {
		if _, isIface := tv.Type.Underlying().(*types.Interface); isIface {
			return call.Args[0]
		}
	}
	return e
}

func (c *TypeCollector) collectStructs(pkg *packages.Package) {
	variants := c.variantSet()

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		typeName, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || typeName.IsAlias() || !c.include(typeName) {
			continue
		}
		st, ok := typeName.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		key := qualifiedName(typeName)
		if variants[key] {
			// Variant fields are reported by their enum.
			continue
		}
		info, err := c.structInfo(typeName, st)
		if err != nil {
			c.errors = append(c.errors, err)
			continue
		}
		c.types[key] = info
	}
}

func (c *TypeCollector) variantSet() map[string]bool {
	set := make(map[string]bool)
	for _, e := range c.enums {
		for _, v := range e.Variants {
			set[v.PkgPath+"."+v.Name] = true
		}
	}
	return set
}

// structInfo reads the encoded fields of a struct: exported, not tagged
// with pade:"-", in declaration order.
func (c *TypeCollector) structInfo(obj *types.TypeName, st *types.Struct) (*TypeInfo, error) {
	info := &TypeInfo{
		Name:    obj.Name(),
		PkgPath: obj.Pkg().Path(),
		Doc:     c.docs[qualifiedName(obj)],
		GoType:  obj.Type(),
	}
	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		if !field.Exported() {
			continue
		}
		tag, err := parseTag(st.Tag(i))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", obj.Name(), field.Name(), err)
		}
		if tag.Skip {
			continue
		}
		info.Fields = append(info.Fields, &FieldInfo{
			Name:   field.Name(),
			GoType: field.Type(),
			Width:  tag.Width,
			Count:  tag.Count,
		})
	}
	return info, nil
}

// collectUnitValues names the variants of unit enums after the constants
// declared with the enum's type.
func (c *TypeCollector) collectUnitValues(pkg *packages.Package) {
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		cnst, ok := scope.Lookup(name).(*types.Const)
		if !ok {
			continue
		}
		named, ok := cnst.Type().(*types.Named)
		if !ok || named.Obj().Pkg() == nil {
			continue
		}
		enum, ok := c.enums[qualifiedName(named.Obj())]
		if !ok || !enum.Unit {
			continue
		}
		val, ok := constantToInt64(cnst)
		if !ok || val < 0 || val >= int64(enum.Count) {
			continue
		}
		if _, dup := enum.Values[val]; !dup {
			enum.Values[val] = name
		}
	}
	for key, enum := range c.enums {
		if enum.Doc == "" {
			enum.Doc = c.docs[key]
		}
	}
}

func constantToInt64(cnst *types.Const) (int64, bool) {
	if cnst.Val() == nil || cnst.Val().Kind() != constant.Int {
		return 0, false
	}
	return constant.Int64Val(cnst.Val())
}

// parseTag parses a pade struct tag: "-" or comma-separated width=N and
// count=N.
func parseTag(tag string) (FieldTag, error) {
	var ft FieldTag
	padeTag := reflect.StructTag(tag).Get("pade")
	if padeTag == "" {
		return ft, nil
	}
	if padeTag == "-" {
		ft.Skip = true
		return ft, nil
	}
	for _, part := range strings.Split(padeTag, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ft, fmt.Errorf("invalid pade tag option %q", part)
		}
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return ft, fmt.Errorf("pade tag option %q needs a positive integer", part)
		}
		switch key {
		case "width":
			ft.Width = n
		case "count":
			ft.Count = n
		default:
			return ft, fmt.Errorf("unknown pade tag option %q", key)
		}
	}
	return ft, nil
}

func (c *TypeCollector) include(obj types.Object) bool {
	if !c.config.IncludePrivate && !obj.Exported() {
		return false
	}
	return c.matchesPatterns(obj.Name())
}

func (c *TypeCollector) matchesPatterns(name string) bool {
	if len(c.config.IncludePatterns) > 0 {
		matched := false
		for _, pattern := range c.config.IncludePatterns {
			if matchGlob(pattern, name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, pattern := range c.config.ExcludePatterns {
		if matchGlob(pattern, name) {
			return false
		}
	}

	return true
}

func matchGlob(pattern, name string) bool {
	// Simple glob matching: * matches any sequence
	regexPattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`) + "$"
	matched, _ := regexp.MatchString(regexPattern, name)
	return matched
}

func qualifiedName(obj types.Object) string {
	return obj.Pkg().Path() + "." + obj.Name()
}
