package metadata

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, stats).

	Rules:
	 - ErrorCause MUST NOT influence control flow. Fallback, retry and
	   install-abort decisions are taken on the typed package errors.
	 - Packages MAY map their local errors to ErrorCause but MUST NOT invent
	   new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown
  - Unexpected internal errors, unclassified library failures.

# CauseNetworkFailure
  - The network could not produce a response: DNS, connection reset,
    timeouts, offline origin.

# CauseContentInvalid
  - A response arrived but cannot be used: non-2xx manifest entry,
    unreadable body, malformed message payload.

# CauseStorageFailure
  - Reading or writing a cache partition failed: quota exceeded, sqlite
    busy or corrupt, partition dropped underneath a writer.

# CauseInvariantViolation
  - A lifecycle invariant was violated: activate before install, install on
    a redundant worker.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrPath       AttributeKey = "path"
	AttrClass      AttributeKey = "class"
	AttrPartition  AttributeKey = "partition"
	AttrVersion    AttributeKey = "version"
	AttrState      AttributeKey = "state"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrMessage    AttributeKey = "message_type"
)
