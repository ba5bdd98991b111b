package service

// Broadcaster pushes realtime events over the websocket hub. Declared here
// so the service layer does not import the transport.
type Broadcaster interface {
	ToSession(pin, event string, payload interface{})
	ToHost(pin, event string, payload interface{})
	ToPlayer(pin, playerID, event string, payload interface{})
}
