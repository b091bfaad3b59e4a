package datadomain

// Session is the connection state of a Client. Values are immutable: Login
// and Logout build a new Session and the client swaps it in atomically.
type Session struct {
	Host      string
	Username  string
	password  string
	Token     string
	VerifyTLS bool
}

// Authenticated reports whether a REST token is held.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// HasCredentials reports whether remote commands can authenticate.
func (s Session) HasCredentials() bool {
	return s.Username != ""
}

func (s Session) withCredentials(username, password string) Session {
	s.Username = username
	s.password = password
	return s
}

func (s Session) withToken(token string) Session {
	s.Token = token
	return s
}
