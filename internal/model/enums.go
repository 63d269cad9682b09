package model

type SessionState string

const (
	SessionStateActive SessionState = "active"
	SessionStateIdle   SessionState = "idle"
	SessionStateEnded  SessionState = "ended"
)

type RecordType string

const (
	RecordTypePageview   RecordType = "pageview"
	RecordTypeEvent      RecordType = "event"
	RecordTypeConversion RecordType = "conversion"
)
