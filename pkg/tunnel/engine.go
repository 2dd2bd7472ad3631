// Package tunnel defines the capability both tunnel layers expose to the code
// that drives them, and implements the inner (device) layer on crypto/tls.
package tunnel

import "remote-screen/pkg/srptls"

// Engine is a sans-IO tunnel endpoint. The driver pulls wire bytes with
// ReadOutput, ships them to the peer however it can, and pushes the peer's
// bytes back with OfferInput. Plaintext goes in with OfferOutput and comes
// out with ReadInput once HandshakeDone reports true.
type Engine interface {
	OfferOutput(p []byte) error
	ReadOutput() ([]byte, error)
	OfferInput(p []byte) error
	ReadInput() ([]byte, error)
	HandshakeDone() bool
}

var (
	_ Engine = (*srptls.Engine)(nil)
	_ Engine = (*Device)(nil)
)
