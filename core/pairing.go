package core

// Pairing statuses as persisted in the shared store and reported to clients.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusExpired   = "expired"
)

// PairingEntry is the record stored under a pairing token key.
// LoginCode and Identity are only set once the entry is confirmed.
type PairingEntry struct {
	Status    string `json:"status"`
	LoginCode string `json:"login_code,omitempty"`
	Identity  string `json:"identity,omitempty"`
}

// LoginCodeEntry is the record stored under a login code key.
type LoginCodeEntry struct {
	SessionID string `json:"session_id"`
	Identity  string `json:"identity"`
}

// PairingPayload is the content encoded into the QR image shown to the phone
type PairingPayload struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}
