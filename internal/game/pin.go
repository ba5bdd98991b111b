package game

import (
	"context"
	"crypto/rand"
	"fmt"
)

// pinChars omits 0/O/1/I so PINs survive being read aloud or copied from
// a projector.
const pinChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const pinLen = 6

// generatePIN creates a collision-checked session PIN.
func (s *Service) generatePIN(ctx context.Context) (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, pinLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		pin := make([]byte, pinLen)
		for i := range pin {
			pin[i] = pinChars[int(b[i])%len(pinChars)]
		}
		pinStr := string(pin)

		existing, err := s.sessions.GetByPIN(ctx, pinStr)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return pinStr, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique session pin")
}
