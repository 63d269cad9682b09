package geo

import "net/http"

// Location is the coarse geography captured at session start. Values come
// from whatever the edge proxy provides; there is no GeoIP database lookup.
type Location struct {
	Country  string
	Region   string
	City     string
	Timezone string
}

const Unknown = "unknown"

// Header sets checked in order: Cloudflare first, then Vercel-style headers.
var (
	countryHeaders  = []string{"CF-IPCountry", "X-Vercel-IP-Country", "X-Geo-Country"}
	regionHeaders   = []string{"X-Vercel-IP-Country-Region", "X-Geo-Region"}
	cityHeaders     = []string{"X-Vercel-IP-City", "X-Geo-City"}
	timezoneHeaders = []string{"X-Vercel-IP-Timezone", "X-Geo-Timezone"}
)

// FromRequest resolves the client location from CDN geo headers. Missing
// headers degrade to "unknown"; resolution never fails a tracking call.
func FromRequest(r *http.Request) Location {
	return Location{
		Country:  countryFromHeaders(r),
		Region:   firstHeader(r, regionHeaders),
		City:     firstHeader(r, cityHeaders),
		Timezone: firstHeader(r, timezoneHeaders),
	}
}

// "XX" is Cloudflare's unknown-country marker and only means anything in a
// country header.
func countryFromHeaders(r *http.Request) string {
	for _, name := range countryHeaders {
		if v := r.Header.Get(name); v != "" && v != "XX" {
			return v
		}
	}
	return Unknown
}

func firstHeader(r *http.Request, names []string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return Unknown
}
