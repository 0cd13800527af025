package geodb

import (
	"context"
	"net"
	"net/http"

	"github.com/9seconds/geoipd/mmdb"
)

// Lookuper is an entity which can resolve an ip address into a
// geolocation record. A nil record with a nil error means the address
// is simply not present in the database.
type Lookuper interface {
	Lookup(ctx context.Context, ip net.IP) (mmdb.Value, error)
}

// HTTPClient is an interface for the HTTP client. It is quite hard to
// find a client which does not conform this interface.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Logger is a logger interface the updater reports through. geodb
// itself is logger-agnostic, an application plugs in whatever it uses.
type Logger interface {
	UpdateInfo(msg string)
	UpdateError(err error)
}
