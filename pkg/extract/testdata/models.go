// Package testdata contains test types for schema extraction.
package testdata

import "github.com/blockberries/pade/pkg/pade"

// Status is the lifecycle of an account.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusActive
	StatusInactive
)

// Shape is a tagged union of drawable shapes.
type Shape interface {
	isShape()
}

// ShapeCircle is a circle around the origin.
type ShapeCircle struct {
	Radius uint32
}

// ShapeRect is an axis-aligned rectangle.
type ShapeRect struct {
	Width  uint32
	Height uint32
}

func (ShapeCircle) isShape() {}
func (ShapeRect) isShape()   {}

func init() {
	pade.MustRegisterUnitEnum[Status](3)
	pade.MustRegisterEnum[Shape](ShapeCircle{}, Shape(ShapeRect{}))
}

// User is an account holder.
type User struct {
	ID       uint64
	Active   bool
	Status   Status
	Balance  pade.Uint128
	Offset   int32    `pade:"width=3"`
	Tags     []uint16 `pade:"count=1"`
	Avatar   []byte
	Address  *Address
	Wallet   *pade.Address
	Shape    Shape
	Internal string `pade:"-"`
	note     string
}

// Address is a postal address.
type Address struct {
	Number  uint16
	ZipCode [5]byte
}

// Admin is a user with extra permissions.
type Admin struct {
	User        User
	Permissions []uint32
}

// Profile has a field PADE cannot encode.
type Profile struct {
	Name string
}

// Account refers to Profile and is dropped with it.
type Account struct {
	Owner Profile
}

// Counter uses a platform-sized integer.
type Counter struct {
	N int
}

// privateType is an unexported type that should be excluded by default.
type privateType struct {
	Value uint64
}

var _ = privateType{}
