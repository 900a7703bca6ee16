package pattern

import (
	"fmt"

	"github.com/pkg/errors"
)

// PayloadPolicy decides which byte a write stores.
type PayloadPolicy int

const (
	// PayloadFixed writes the same fill byte everywhere.
	PayloadFixed PayloadPolicy = iota

	// PayloadOffset writes the low byte of the accessed offset.
	PayloadOffset

	// PayloadPrior writes back the byte that was in memory before the
	// write.
	PayloadPrior
)

// DefaultFill is the byte written by PayloadFixed unless configured
// otherwise.
const DefaultFill byte = 0xa5

var payloadPolicyNames = map[PayloadPolicy]string{
	PayloadFixed:  "fixed",
	PayloadOffset: "offset",
	PayloadPrior:  "prior",
}

func (p PayloadPolicy) String() string {
	name, ok := payloadPolicyNames[p]
	if !ok {
		return "unknown"
	}

	return name
}

// ParsePayloadPolicy converts "fixed", "offset", or "prior" to a
// PayloadPolicy.
func ParsePayloadPolicy(s string) (PayloadPolicy, error) {
	for policy, name := range payloadPolicyNames {
		if name == s {
			return policy, nil
		}
	}

	return 0, errors.Wrapf(ErrConfig, "unknown payload policy %q", s)
}

// Payload describes what write accesses store.
type Payload struct {
	Policy PayloadPolicy
	Fill   byte
}

// DefaultPayload writes DefaultFill.
func DefaultPayload() Payload {
	return Payload{Policy: PayloadFixed, Fill: DefaultFill}
}

func (p Payload) value(offset uint64, prior byte) byte {
	switch p.Policy {
	case PayloadOffset:
		return byte(offset)
	case PayloadPrior:
		return prior
	default:
		return p.Fill
	}
}

func (p Payload) String() string {
	if p.Policy == PayloadFixed {
		return fmt.Sprintf("%s(%#02x)", p.Policy, p.Fill)
	}

	return p.Policy.String()
}
