package pade

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// EnumRegistration describes a registered enum.
//
// An interface enum is a Go interface type whose variants are concrete
// types implementing it; the position of a variant in Variants is its tag.
// A unit enum is an integer type whose values 0..Count-1 are the tags.
type EnumRegistration struct {
	// Name is the fully qualified enum name.
	Name string

	// Type is the interface or integer type of the enum.
	Type reflect.Type

	// Variants lists variant payload types in tag order. Nil for unit enums.
	Variants []reflect.Type

	// Count is the number of variants.
	Count int

	// TagBits is the number of header bits a tag occupies.
	TagBits int

	// stored[i] is the type held by the interface for variant i: the
	// payload type, or a pointer to it when only the pointer implements Type.
	stored []reflect.Type
	byType map[reflect.Type]int
}

// Unit reports whether the enum is an integer enum without payloads.
func (e *EnumRegistration) Unit() bool {
	return e.Variants == nil
}

// TagOf returns the tag of a variant payload type. Pointer types are
// dereferenced first.
func (e *EnumRegistration) TagOf(t reflect.Type) (int, bool) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	tag, ok := e.byType[t]
	return tag, ok
}

// VariantName returns the name of the variant with the given tag.
func (e *EnumRegistration) VariantName(tag int) string {
	if tag < 0 || tag >= e.Count {
		return ""
	}
	if e.Unit() {
		return fmt.Sprintf("%s(%d)", e.Name, tag)
	}
	return e.Variants[tag].Name()
}

// Registry manages enum registrations and compiled layout plans.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// enums maps the interface or integer type to its registration.
	enums map[reflect.Type]*EnumRegistration

	// byName maps enum name to registration.
	byName map[string]*EnumRegistration

	// plans caches compiled codecs by type.
	plans sync.Map

	// compileMu serializes plan compilation.
	compileMu sync.Mutex
}

// NewRegistry creates a new registry.
func NewRegistry() *Registry {
	return &Registry{
		enums:  make(map[reflect.Type]*EnumRegistration),
		byName: make(map[string]*EnumRegistration),
	}
}

// DefaultRegistry is the global default registry.
var DefaultRegistry = NewRegistry()

// Integer is the set of types a unit enum can use.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// RegisterEnum registers the interface type E as an enum whose variants are
// the dynamic types of variants, in tag order.
//
//	pade.RegisterEnum[Shape](Circle{}, Square{}, Triangle{})
func RegisterEnum[E any](variants ...E) error {
	return DefaultRegistry.RegisterEnumType(reflect.TypeFor[E](), variantTypes(variants))
}

// MustRegisterEnum is like RegisterEnum but panics on error.
// It is intended for use in init functions.
func MustRegisterEnum[E any](variants ...E) {
	if err := RegisterEnum(variants...); err != nil {
		panic(err)
	}
}

// RegisterUnitEnum registers the integer type E as an enum with count
// variants, tagged by value.
func RegisterUnitEnum[E Integer](count int) error {
	return DefaultRegistry.RegisterUnitEnumType(reflect.TypeFor[E](), count)
}

// MustRegisterUnitEnum is like RegisterUnitEnum but panics on error.
func MustRegisterUnitEnum[E Integer](count int) {
	if err := RegisterUnitEnum[E](count); err != nil {
		panic(err)
	}
}

func variantTypes[E any](variants []E) []reflect.Type {
	types := make([]reflect.Type, len(variants))
	for i, v := range variants {
		types[i] = reflect.TypeOf(v) // nil for a nil interface value
	}
	return types
}

// RegisterEnumType registers iface as an enum with the given variant types.
func (r *Registry) RegisterEnumType(iface reflect.Type, variants []reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return NewRegistrationError(typeName(iface), "enum type must be an interface", ErrUnsupportedType)
	}
	name := typeName(iface)
	if len(variants) == 0 {
		return NewRegistrationError(name, "no variants", ErrEmptyEnum)
	}

	reg := &EnumRegistration{
		Name:     name,
		Type:     iface,
		Variants: make([]reflect.Type, len(variants)),
		Count:    len(variants),
		TagBits:  TagBits(len(variants)),
		stored:   make([]reflect.Type, len(variants)),
		byType:   make(map[reflect.Type]int, len(variants)),
	}
	for i, vt := range variants {
		if vt == nil {
			return NewRegistrationError(name, fmt.Sprintf("variant %d is nil", i), ErrUnsupportedType)
		}
		payload := vt
		if payload.Kind() == reflect.Pointer {
			payload = payload.Elem()
		}
		switch {
		case payload.Implements(iface):
			reg.stored[i] = payload
		case reflect.PointerTo(payload).Implements(iface):
			reg.stored[i] = reflect.PointerTo(payload)
		default:
			return NewRegistrationError(name, fmt.Sprintf("%s does not implement %s", typeName(payload), name), ErrUnsupportedType)
		}
		if _, dup := reg.byType[payload]; dup {
			return NewRegistrationError(name, fmt.Sprintf("variant %s listed twice", typeName(payload)), ErrDuplicateVariant)
		}
		reg.Variants[i] = payload
		reg.byType[payload] = i
	}

	if err := r.add(reg); err != nil {
		return err
	}
	Logger().Debug("registered enum",
		zap.String("enum", name),
		zap.Int("variants", reg.Count),
		zap.Int("tag_bits", reg.TagBits),
	)
	return nil
}

// RegisterUnitEnumType registers the integer type t as an enum with count variants.
func (r *Registry) RegisterUnitEnumType(t reflect.Type, count int) error {
	name := typeName(t)
	if t == nil || !isIntegerKind(t.Kind()) {
		return NewRegistrationError(name, "unit enum type must be an integer", ErrUnsupportedType)
	}
	if count < 1 {
		return NewRegistrationError(name, "no variants", ErrEmptyEnum)
	}
	if overflowsInteger(t, uint64(count-1)) {
		return NewRegistrationError(name, fmt.Sprintf("%d variants overflow %s", count, t.Kind()), ErrUnsupportedType)
	}

	reg := &EnumRegistration{
		Name:    name,
		Type:    t,
		Count:   count,
		TagBits: TagBits(count),
	}
	if err := r.add(reg); err != nil {
		return err
	}
	Logger().Debug("registered unit enum",
		zap.String("enum", name),
		zap.Int("variants", count),
		zap.Int("tag_bits", reg.TagBits),
	)
	return nil
}

func (r *Registry) add(reg *EnumRegistration) error {
	// compileMu before mu, the order codecFor uses, so no compile in
	// flight can store plans built before this registration.
	r.compileMu.Lock()
	defer r.compileMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.enums[reg.Type]; ok {
		return NewRegistrationError(reg.Name, "already registered", ErrDuplicateEnum)
	}
	r.enums[reg.Type] = reg
	r.byName[reg.Name] = reg
	// A type planned before registration may have been planned by kind.
	r.plans.Clear()
	return nil
}

// Enum returns the registration for t, if any.
func (r *Registry) Enum(t reflect.Type) (*EnumRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.enums[t]
	return reg, ok
}

// EnumByName returns the registration with the given name, if any.
func (r *Registry) EnumByName(name string) (*EnumRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	return reg, ok
}

// Enums returns all registrations sorted by name.
func (r *Registry) Enums() []*EnumRegistration {
	r.mu.RLock()
	result := make([]*EnumRegistration, 0, len(r.enums))
	for _, reg := range r.enums {
		result = append(result, reg)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Len returns the number of registered enums.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.enums)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func overflowsInteger(t reflect.Type, v uint64) bool {
	z := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v > 1<<62 || z.OverflowInt(int64(v))
	default:
		return z.OverflowUint(v)
	}
}
