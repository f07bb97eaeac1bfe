package auth

import (
	"github.com/free5gc/nasauth/internal/eap"
)

const (
	eapCodeSuccess = eap.CodeSuccess
	eapCodeFailure = eap.CodeFailure
)

// eapHeaderOf parses the outer 5-byte EAP header of an EAP payload, used by
// the controller to dispatch on EAP Code without caring about the method.
func eapHeaderOf(b []byte) (eap.Header, error) {
	return eap.ParseHeader(b)
}
