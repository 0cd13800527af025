package geodb

import (
	"net"

	"github.com/9seconds/geoipd/mmdb"
)

// countryRecordKeys is what the country endpoint of the MaxMind web
// service keeps from a full city record.
var countryRecordKeys = map[string]bool{
	"continent":           true,
	"country":             true,
	"registered_country":  true,
	"represented_country": true,
	"traits":              true,
}

// CityRecord is the full record as stored in the database.
func CityRecord(value mmdb.Value) mmdb.Value {
	return value
}

// CountryRecord projects a city record down to its country-level
// sections. Non-map records pass through untouched.
func CountryRecord(value mmdb.Value) mmdb.Value {
	fullRecord, ok := value.(mmdb.Map)
	if !ok {
		return value
	}

	rv := mmdb.Map{}

	for _, entry := range fullRecord {
		if countryRecordKeys[string(entry.Key)] {
			rv = append(rv, entry)
		}
	}

	return rv
}

// IsReservedIP tells if the address belongs to a range which never
// appears in a public geolocation database.
func IsReservedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}
