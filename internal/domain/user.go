package domain

// UserState represents user's current interaction state
type UserState string

const (
	StateIdle            UserState = "idle"
	StateWaitingImport   UserState = "waiting_import"
	StateWaitingCategory UserState = "waiting_category"
	StateWaitingNote     UserState = "waiting_note"
	StateWaitingPassword UserState = "waiting_password"
)

// StateData holds temporary data for user's current state
type StateData struct {
	State      UserState
	CategoryID string // import target
	ItemID     string // item being annotated
	MessageID  int    // For editing messages
}
