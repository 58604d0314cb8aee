package safety

import (
	"encoding/json"
	"fmt"

	"vizard/internal/types"
)

// DecodeEnvelope parses an inbound frame into an envelope. A frame that does
// not parse, or that carries no type tag, is rejected; the caller logs and
// drops it without replying since no id can be trusted.
func DecodeEnvelope(raw []byte) (*types.Envelope, error) {
	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("frame missing type tag")
	}
	return &env, nil
}
