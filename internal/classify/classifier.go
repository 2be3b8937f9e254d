package classify

import "strings"

// Kind is the failure category driving the disable-or-retry decision
type Kind int

const (
	// Unknown is the conservative default: log and retry later, never disable
	Unknown Kind = iota
	// Permanent means the remote account no longer exists or is unreachable
	// in principle; further sync attempts should be disabled
	Permanent
	// Temporary means a transient condition worth retrying next cycle
	Temporary
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case Permanent:
		return "permanent"
	case Temporary:
		return "temporary"
	default:
		return "unknown"
	}
}

// Recommended actions attached to a classification
const (
	ActionDisableProfile = "disable_profile"
	ActionRetryLater     = "retry_later"
	ActionLogAndMonitor  = "log_and_monitor"
)

// permanentPatterns indicate the account no longer exists or is permanently
// unavailable. Structural parse failures ("invalid response structure") are
// deliberately absent: a missing container without a not-found signal is
// ambiguous and must fall through to Unknown.
var permanentPatterns = []string{
	"404",
	"not found",
	"does not exist",
	"doesn't exist",
	"deleted",
	"banned",
	"invalid username",
	"user not found",
}

// temporaryPatterns indicate transient network or API conditions that must
// not trigger profile disabling
var temporaryPatterns = []string{
	"timeout",
	"timed out",
	"network error",
	"connection",
	"rate limit",
	"429",
	"attempts failed",
	"execution expired",
	"connection refused",
	"host unreachable",
	"unreachable",
	"socket error",
	"server error",
}

// Description carries the classification and the recommended handling
type Description struct {
	Kind        Kind
	Action      string
	UserMessage string
}

// IsPermanent reports whether the message matches a permanent pattern
func IsPermanent(message string) bool {
	return matchesAny(message, permanentPatterns)
}

// IsTemporary reports whether the message matches a temporary pattern
func IsTemporary(message string) bool {
	return matchesAny(message, temporaryPatterns)
}

// Classify maps an error message to Permanent, Temporary or Unknown.
// Permanent wins over Temporary when both match, since a 404 text often also
// mentions the connection. Unmatched messages stay Unknown so transient
// upstream format changes never mass-disable accounts.
func Classify(message string) Kind {
	if IsPermanent(message) {
		return Permanent
	}
	if IsTemporary(message) {
		return Temporary
	}
	return Unknown
}

// Describe returns the classification together with the recommended action
// and a user-facing message
func Describe(message string) Description {
	switch Classify(message) {
	case Permanent:
		return Description{
			Kind:        Permanent,
			Action:      ActionDisableProfile,
			UserMessage: "Profile no longer exists on the platform - disabled",
		}
	case Temporary:
		return Description{
			Kind:        Temporary,
			Action:      ActionRetryLater,
			UserMessage: "Temporary network or API issue (not disabling)",
		}
	default:
		return Description{
			Kind:        Unknown,
			Action:      ActionLogAndMonitor,
			UserMessage: "Unknown error (not disabling)",
		}
	}
}

func matchesAny(message string, patterns []string) bool {
	normalized := strings.ToLower(message)
	for _, pattern := range patterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}
