package leads

import "time"

// Clock abstracts time.Now so breaker cooldowns and recency decay are
// testable.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints identifiers for new rows.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher produces the hex digest used in signal dedup keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}
