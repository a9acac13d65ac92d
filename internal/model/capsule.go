package model

import "time"

// Capsule represents a time capsule record. Exactly one of Message or
// Ciphertext carries the payload: Ciphertext and Nonce are set if and only if
// Encrypted is true. The locked/unlocked state is never stored; it is derived
// from UnlockAt on every read.
type Capsule struct {
	ID             string
	OwnerID        int64
	Title          string
	Message        string
	Ciphertext     []byte
	Nonce          []byte
	MediaKey       string
	MediaType      string
	UnlockAt       time.Time
	Public         bool
	Encrypted      bool
	Reviewed       bool
	UnlockNotified bool
	ReportCount    int
	CreatedAt      time.Time
}

// CreateCapsuleRequest carries the fields of a capsule creation call.
// UnlockAt is immutable after creation.
type CreateCapsuleRequest struct {
	Title     string
	Message   string
	UnlockAt  time.Time
	Public    bool
	Encrypted bool
}

// CapsuleView is the API representation of a capsule. For a locked capsule
// Message, MediaURL and MediaType are always empty, regardless of requester.
type CapsuleView struct {
	ID        string    `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	UnlockAt  time.Time `json:"unlock_at"`
	Unlocked  bool      `json:"is_unlocked"`
	Public    bool      `json:"is_public"`
	Encrypted bool      `json:"is_encrypted"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminCapsuleView is the moderation listing entry. It carries report state
// but never the payload.
type AdminCapsuleView struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	UnlockAt    time.Time `json:"unlock_at"`
	Unlocked    bool      `json:"is_unlocked"`
	Public      bool      `json:"is_public"`
	Encrypted   bool      `json:"is_encrypted"`
	Reviewed    bool      `json:"is_reviewed"`
	ReportCount int       `json:"report_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportRequest carries the reason of a capsule report.
type ReportRequest struct {
	Reason string `json:"reason"`
}

// ReportResponse returns the deduplicated report count after a report call.
type ReportResponse struct {
	CapsuleID   string `json:"capsule_id"`
	ReportCount int    `json:"report_count"`
}

// CapsuleCounts holds aggregate capsule numbers for the admin dashboard.
type CapsuleCounts struct {
	Total    int64
	Unlocked int64
	Reported int64
}

// Stats is the admin dashboard payload.
type Stats struct {
	TotalUsers       int64 `json:"total_users"`
	ActiveUsers      int64 `json:"active_users"`
	BannedUsers      int64 `json:"banned_users"`
	TotalCapsules    int64 `json:"total_capsules"`
	LockedCapsules   int64 `json:"locked_capsules"`
	UnlockedCapsules int64 `json:"unlocked_capsules"`
	ReportedCapsules int64 `json:"reported_capsules"`
}
