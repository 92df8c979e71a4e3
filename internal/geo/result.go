package geo

import "context"

// Kind is the outcome of a geolocation lookup.
type Kind int

const (
	// Resolved means the service returned a location.
	Resolved Kind = iota
	// Private means the address is in a private or loopback range and was not looked up.
	Private
	// NotFound means the service answered but had no location for the address.
	NotFound
	// Failed means the lookup itself failed (network, timeout, bad response).
	Failed
)

func (k Kind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Private:
		return "private"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Display strings used in place of a location when a lookup did not resolve.
const (
	Unknown      = "Unknown"
	PrivateIP    = "Private IP"
	LookupFailed = "Lookup Failed"
	LookupError  = "Lookup Error"
)

// Result is a tagged lookup outcome. Failures are values, never errors.
type Result struct {
	Kind     Kind   `json:"kind"`
	Location string `json:"location,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// String renders the location, or the display sentinel for non-resolved results.
func (r Result) String() string {
	switch r.Kind {
	case Resolved:
		if r.Location == "" {
			return Unknown
		}
		return r.Location
	case Private:
		return PrivateIP
	case NotFound:
		return LookupFailed
	default:
		return LookupError
	}
}

// OK reports whether the result carries a location.
func (r Result) OK() bool {
	return r.Kind == Resolved && r.Location != ""
}

// Resolver maps an IP address to a location.
type Resolver interface {
	Resolve(ctx context.Context, ip string) Result
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ip string) Result

func (f ResolverFunc) Resolve(ctx context.Context, ip string) Result { return f(ctx, ip) }

// Nop never looks anything up; every address resolves to Unknown.
var Nop Resolver = ResolverFunc(func(context.Context, string) Result {
	return Result{Kind: Resolved}
})

func failed(err error) Result {
	return Result{Kind: Failed, Reason: err.Error()}
}
