package tc3

import (
	"strconv"
	"time"
)

// DateFormat is the credential scope date layout.
const DateFormat = "2006-01-02"

// SigningTime wraps the instant a request is signed at with cached format
// strings, so the timestamp header, the string to sign and the credential
// scope all derive from the one clock read.
type SigningTime struct {
	time.Time
	timestamp string
	date      string
}

// NewSigningTime creates a SigningTime from a time.Time. The time is
// converted to UTC, the scope date never follows the local calendar.
func NewSigningTime(t time.Time) SigningTime {
	t = t.UTC()
	return SigningTime{
		Time:      t,
		timestamp: strconv.FormatInt(t.Unix(), 10),
		date:      t.Format(DateFormat),
	}
}

// NewSigningTimeUnix creates a SigningTime from integer unix seconds.
func NewSigningTimeUnix(sec int64) SigningTime {
	return NewSigningTime(time.Unix(sec, 0))
}

// Timestamp is the unix second count as a decimal string, used verbatim in
// the string to sign and the X-TC-Timestamp header.
func (st SigningTime) Timestamp() string {
	return st.timestamp
}

// Date is the UTC calendar date scoping the derived key.
func (st SigningTime) Date() string {
	return st.date
}
