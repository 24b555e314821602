package domain

import "time"

// OTP is one outstanding verification challenge. There is at most one per email.
// ExpiresAt is a Unix timestamp, also used as DynamoDB TTL.
type OTP struct {
	Email     string `json:"email" dynamodbav:"email"`
	Code      string `json:"code" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Expired reports whether the code is past its expiry at now. ExpiresAt is
// rounded down when issued, so the second it names is already expired.
func (o *OTP) Expired(now time.Time) bool {
	return o.ExpiresAt <= now.Unix()
}
