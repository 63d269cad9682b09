package geo

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	t.Run("reads cloudflare country", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/tracking/pageview", nil)
		r.Header.Set("CF-IPCountry", "DE")

		loc := FromRequest(r)
		assert.Equal(t, "DE", loc.Country)
		assert.Equal(t, Unknown, loc.City)
	})

	t.Run("reads vercel geo headers", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/tracking/pageview", nil)
		r.Header.Set("X-Vercel-IP-Country", "US")
		r.Header.Set("X-Vercel-IP-Country-Region", "CA")
		r.Header.Set("X-Vercel-IP-City", "San Francisco")
		r.Header.Set("X-Vercel-IP-Timezone", "America/Los_Angeles")

		loc := FromRequest(r)
		assert.Equal(t, "US", loc.Country)
		assert.Equal(t, "CA", loc.Region)
		assert.Equal(t, "San Francisco", loc.City)
		assert.Equal(t, "America/Los_Angeles", loc.Timezone)
	})

	t.Run("cloudflare wins over fallback headers", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/tracking/pageview", nil)
		r.Header.Set("CF-IPCountry", "FR")
		r.Header.Set("X-Geo-Country", "US")

		assert.Equal(t, "FR", FromRequest(r).Country)
	})

	t.Run("treats XX country as unknown", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/tracking/pageview", nil)
		r.Header.Set("CF-IPCountry", "XX")

		assert.Equal(t, Unknown, FromRequest(r).Country)
	})

	t.Run("XX country falls through to the next header", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/tracking/pageview", nil)
		r.Header.Set("CF-IPCountry", "XX")
		r.Header.Set("X-Geo-Country", "US")

		assert.Equal(t, "US", FromRequest(r).Country)
	})

	t.Run("XX passes through outside country headers", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/tracking/pageview", nil)
		r.Header.Set("X-Vercel-IP-Country-Region", "XX")

		assert.Equal(t, "XX", FromRequest(r).Region)
	})

	t.Run("no headers means unknown everywhere", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/tracking/pageview", nil)

		loc := FromRequest(r)
		assert.Equal(t, Unknown, loc.Country)
		assert.Equal(t, Unknown, loc.Region)
		assert.Equal(t, Unknown, loc.City)
		assert.Equal(t, Unknown, loc.Timezone)
	})
}
