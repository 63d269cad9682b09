package model

import "time"

// Aggregate rows returned by the stats queries. All of them are computed
// on demand from the session store; nothing here is a stored counter.

type Overview struct {
	TotalSessions     int64 `db:"total_sessions" json:"totalSessions"`
	ActiveSessions    int64 `db:"active_sessions" json:"activeSessions"`
	IdleSessions      int64 `db:"idle_sessions" json:"idleSessions"`
	EndedSessions     int64 `db:"ended_sessions" json:"endedSessions"`
	ConvertedSessions int64 `db:"converted_sessions" json:"convertedSessions"`
	TotalPageviews    int64 `db:"total_pageviews" json:"totalPageviews"`
	TotalEvents       int64 `db:"total_events" json:"totalEvents"`
}

// ConversionRate is sessions-with-conversion over total sessions.
func (o Overview) ConversionRate() float64 {
	if o.TotalSessions == 0 {
		return 0
	}
	return float64(o.ConvertedSessions) / float64(o.TotalSessions)
}

type PageStat struct {
	URL       string `db:"url" json:"url"`
	Title     string `db:"title" json:"title"`
	ViewCount int64  `db:"view_count" json:"viewCount"`
}

type GeoStat struct {
	Country      string `db:"country" json:"country"`
	Region       string `db:"region" json:"region"`
	SessionCount int64  `db:"session_count" json:"sessionCount"`
}

type DeviceStat struct {
	DeviceType   string `db:"device_type" json:"deviceType"`
	Browser      string `db:"browser" json:"browser"`
	SessionCount int64  `db:"session_count" json:"sessionCount"`
}

type RealtimeSnapshot struct {
	ActiveSessions []Session `json:"activeSessions"`
	AsOf           time.Time `json:"asOf"`
}
