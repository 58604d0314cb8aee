package safety

// DefaultMaxMessageBytes is the outbound frame ceiling (1 MiB). Frames above
// it are replaced with a diagnostic payload instead of being sent.
const DefaultMaxMessageBytes = 1 << 20

// SizeCheck carries both the measured and maximum sizes so oversize
// diagnostics can report actionable numbers.
type SizeCheck struct {
	OK   bool `json:"ok"`
	Size int  `json:"size"`
	Max  int  `json:"max"`
}

// ValidateMessageSize compares the serialized length of a frame against the
// ceiling. A frame of exactly max bytes is valid; one byte more is not.
func ValidateMessageSize(raw []byte, max int) SizeCheck {
	if max <= 0 {
		max = DefaultMaxMessageBytes
	}
	return SizeCheck{
		OK:   len(raw) <= max,
		Size: len(raw),
		Max:  max,
	}
}
