package pade

import "github.com/blockberries/pade/internal/wire"

// Limits defines resource limits for decoding untrusted input.
type Limits struct {
	// MaxDepth is the maximum nesting depth of structs, enums, options and sequences.
	// A value of 0 means no limit.
	MaxDepth int

	// MaxSequenceLength is the maximum element count of a decoded sequence.
	// A value of 0 means no limit beyond the count prefix width.
	MaxSequenceLength int

	// MaxBytesLength is the maximum length of a decoded byte string.
	// A value of 0 means no limit beyond the 3-byte prefix.
	MaxBytesLength int
}

// DefaultLimits are the default resource limits.
var DefaultLimits = Limits{
	MaxDepth:          100,
	MaxSequenceLength: 1 << 16,
	MaxBytesLength:    wire.MaxLength,
}

// SecureLimits are conservative limits for untrusted input.
var SecureLimits = Limits{
	MaxDepth:          32,
	MaxSequenceLength: 4096,
	MaxBytesLength:    1024 * 1024, // 1 MB
}

// NoLimits disables all resource limits.
// Use with caution - only for trusted input.
var NoLimits = Limits{}

// Options configures encoding/decoding behavior.
type Options struct {
	// Limits specifies resource limits.
	Limits Limits

	// AllowTrailingBytes lets Unmarshal succeed when input remains after
	// the value. Decode always allows it.
	AllowTrailingBytes bool

	// Registry holds enum registrations and compiled plans.
	// Nil means DefaultRegistry.
	Registry *Registry
}

// DefaultOptions are the default encoding/decoding options.
var DefaultOptions = Options{
	Limits: DefaultLimits,
}

// SecureOptions are conservative options for untrusted input.
var SecureOptions = Options{
	Limits: SecureLimits,
}

func (o Options) registry() *Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return DefaultRegistry
}

// Version information, set by ldflags at build time.
var (
	// Version is the semantic version of the library.
	Version = "dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// VersionInfo returns a formatted version string.
func VersionInfo() string {
	return Version + " (" + GitCommit + ", " + BuildDate + ")"
}

// Size constants for fixed-size values.
const (
	// BoolSize is the encoded size of a standalone bool (one header byte).
	BoolSize = 1

	// Uint128Size is the encoded size of a Uint128.
	Uint128Size = wire.Uint128Size

	// Uint160Size is the encoded size of a Uint160.
	Uint160Size = wire.Uint160Size

	// Uint256Size is the encoded size of a Uint256.
	Uint256Size = wire.Uint256Size

	// Int24Size is the encoded size of an Int24.
	Int24Size = wire.Int24Size

	// AddressSize is the encoded size of an Address.
	AddressSize = 20

	// HashSize is the encoded size of a Hash.
	HashSize = 32

	// SignatureSize is the encoded size of a Signature: V, R and S.
	SignatureSize = 1 + 2*Uint256Size

	// LengthPrefixSize is the size of the Bytes length prefix.
	LengthPrefixSize = wire.LengthPrefixSize

	// MaxBytesLen is the longest byte string the length prefix can describe.
	MaxBytesLen = wire.MaxLength

	// DefaultCountSize is the default size of a sequence element count.
	DefaultCountSize = wire.DefaultCountSize
)

// TagBits returns the number of header bits an enum with the given number
// of variants occupies: max(1, ceil(log2(variants))).
func TagBits(variants int) int {
	return wire.TagBits(variants)
}

// HeaderBytes returns the size in bytes of a header holding bits bits.
func HeaderBytes(bits int) int {
	return wire.HeaderSize(bits)
}
