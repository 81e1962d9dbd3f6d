package events

// LoginDoneEvent is published after a login has been persisted.
type LoginDoneEvent struct {
	BlogURL string
}

func (LoginDoneEvent) EventName() string { return "login succeeded" }

// LoginErrorEvent is published for every failed login attempt, including
// rejected credentials that will be retried.
type LoginErrorEvent struct {
	BlogURL string
	Err     error
}

func (LoginErrorEvent) EventName() string { return "login failed" }

// CredentialsExpiredEvent is published when stored credentials were
// rejected during a background re-login and have been deleted.
type CredentialsExpiredEvent struct {
	BlogURL string
}

func (CredentialsExpiredEvent) EventName() string { return "credentials expired" }
