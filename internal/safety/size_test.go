package safety

import (
	"bytes"
	"testing"
)

func TestValidateMessageSize_Boundary(t *testing.T) {
	max := 64

	exact := ValidateMessageSize(bytes.Repeat([]byte("a"), max), max)
	if !exact.OK {
		t.Errorf("frame of exactly %d bytes should be valid", max)
	}
	if exact.Size != max || exact.Max != max {
		t.Errorf("diagnostics wrong: %+v", exact)
	}

	over := ValidateMessageSize(bytes.Repeat([]byte("a"), max+1), max)
	if over.OK {
		t.Errorf("frame of %d bytes should exceed ceiling %d", max+1, max)
	}
	if over.Size != max+1 {
		t.Errorf("measured size = %d, want %d", over.Size, max+1)
	}
}

func TestValidateMessageSize_DefaultCeiling(t *testing.T) {
	check := ValidateMessageSize([]byte("hello"), 0)
	if !check.OK {
		t.Error("small frame should pass default ceiling")
	}
	if check.Max != DefaultMaxMessageBytes {
		t.Errorf("default ceiling = %d, want %d", check.Max, DefaultMaxMessageBytes)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"id":"1","type":"prompt_req","payload":{"prompt":"hi"}}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if env.ID != "1" || env.Type != "prompt_req" {
		t.Errorf("decoded envelope wrong: %+v", env)
	}

	if _, err := DecodeEnvelope([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
	if _, err := DecodeEnvelope([]byte(`{"id":"1"}`)); err == nil {
		t.Error("expected error for frame without type")
	}
}
