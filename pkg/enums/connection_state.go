package enums

// ConnectionState tracks the push channel lifecycle.
type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateReconnecting ConnectionState = "reconnecting"
)

// IsActive reports whether the state holds or is acquiring a live session.
func (s ConnectionState) IsActive() bool {
	return s == ConnectionStateConnecting || s == ConnectionStateConnected || s == ConnectionStateReconnecting
}

// Gauge maps the state onto a numeric value for metrics.
func (s ConnectionState) Gauge() float64 {
	switch s {
	case ConnectionStateConnecting:
		return 1
	case ConnectionStateConnected:
		return 2
	case ConnectionStateReconnecting:
		return 3
	}
	return 0
}
