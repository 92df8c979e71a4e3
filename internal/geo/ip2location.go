package geo

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ip2location/ip2location-go/v9"
)

// ErrInvalidIP is the reason of a Failed result for an address the database cannot parse.
var ErrInvalidIP = errors.New("invalid ip address")

// IP2LocationResolver resolves addresses offline from an IP2Location BIN database
// (for example IP2LOCATION-LITE-DB3.BIN with country, region and city).
//
// This site or product includes IP2Location LITE data available from
// <a href="https://lite.ip2location.com">https://lite.ip2location.com</a>.
type IP2LocationResolver struct {
	db *ip2location.DB
}

// OpenIP2Location opens the database at dbPath. Close it when done.
func OpenIP2Location(dbPath string) (*IP2LocationResolver, error) {
	db, err := ip2location.OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ip2location db %s: %w", dbPath, err)
	}
	return &IP2LocationResolver{db: db}, nil
}

func (r *IP2LocationResolver) Resolve(_ context.Context, ip string) Result {
	addr := net.ParseIP(ip)
	if addr == nil {
		return failed(fmt.Errorf("%w: %q", ErrInvalidIP, ip))
	}

	rec, err := r.db.Get_all(addr.String())
	if err != nil {
		return failed(err)
	}

	if missing(rec.Country_long) {
		return Result{Kind: NotFound, Reason: "address not in database"}
	}

	return Result{Kind: Resolved, Location: join(clean(rec.City), clean(rec.Region), rec.Country_long)}
}

// Close releases the database file.
func (r *IP2LocationResolver) Close() {
	r.db.Close()
}

// missing reports whether an ip2location field carries no data. The lite
// databases use "-" and the library uses a notice string for absent columns.
func missing(s string) bool {
	return s == "" || s == "-" || s == ip2locationNotSupported
}

const ip2locationNotSupported = "This parameter is unavailable for selected data file. Please upgrade the data file."

func clean(s string) string {
	if missing(s) {
		return ""
	}
	return s
}
