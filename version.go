package relay

// Library identity, reported in the default User-Agent header.
const (
	// Name is the library name.
	Name = "relay-go"

	// Version is the library version.
	Version = "1.3.0"
)

// DefaultUserAgent is the User-Agent header value used when the client
// builder does not override it.
const DefaultUserAgent = Name + "/" + Version
