package protocol_test

import (
	"strings"
	"testing"

	"skyticket.ai/internal/protocol"
)

func newValidator(t *testing.T) *protocol.Validator {
	t.Helper()
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestSchemas_AllTypesCompiled(t *testing.T) {
	v := newValidator(t)
	got := strings.Join(v.Types(), ",")
	if got != "CHUNK,FRAME,HELLO,INPUT,NOTICE,WELCOME" {
		t.Fatalf("types=%s", got)
	}
}

func TestSchemas_ValidateSamples(t *testing.T) {
	v := newValidator(t)

	ok := []struct {
		typ string
		raw string
	}{
		{protocol.TypeHello, `{"type":"HELLO","protocol_version":"1.0","client_name":"viewer"}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","events":[
			{"kind":"KEY_DOWN","key":"KeyW"},
			{"kind":"LOOK","dx":12,"dy":-3.5},
			{"kind":"PRESS","key":"INTERACT"}]}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","events":[]}`},
	}
	for _, tc := range ok {
		if err := v.Validate(tc.typ, []byte(tc.raw)); err != nil {
			t.Fatalf("%s sample rejected: %v", tc.typ, err)
		}
	}

	bad := []struct {
		typ string
		raw string
	}{
		{protocol.TypeHello, `{"type":"HELLO"}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","events":[{"kind":"KEY_DOWN"}]}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","events":[{"kind":"TELEPORT"}]}`},
		{protocol.TypeInput, `{"type":"INPUT","protocol_version":"1.0","events":[{"kind":"LOOK","dx":"fast"}]}`},
		{protocol.TypeInput, `not json`},
	}
	for _, tc := range bad {
		if err := v.Validate(tc.typ, []byte(tc.raw)); err == nil {
			t.Fatalf("%s sample accepted: %s", tc.typ, tc.raw)
		}
	}

	if err := v.Validate("OBS", []byte(`{}`)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestSchemas_ServerMessagesConform(t *testing.T) {
	v := newValidator(t)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "9b2c7a4e-1f1d-4f43-9d59-5d1c1c8f0a11",
		WorldParams: protocol.WorldParams{
			TickRateHz:      20,
			StepSeconds:     0.1,
			Seed:            1337,
			TerrainMode:     "continuous",
			ChunkSize:       16,
			RenderDistance:  2,
			LookSensitivity: 0.002,
		},
	}
	if err := v.ValidateValue(protocol.TypeWelcome, welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}

	chunk := protocol.ChunkMsg{
		Type:            protocol.TypeChunk,
		ProtocolVersion: protocol.Version,
		CX:              -1,
		CZ:              2,
		Size:            1,
		Heights:         []float64{0.5, 1, 1.5, 2},
		Top:             []string{"GRASS"},
		Trees:           []protocol.TreeRef{{LX: 0, LZ: 0, Base: 2, Height: 5}},
		Digest:          strings.Repeat("ab", 32),
	}
	if err := v.ValidateValue(protocol.TypeChunk, chunk); err != nil {
		t.Fatalf("chunk: %v", err)
	}

	frame := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            7,
		Mode:            "ON_FOOT",
		Camera:          protocol.Transform{Pos: [3]float64{0, 15, 0}},
		Vehicle: protocol.VehicleState{
			Transform: protocol.Transform{Pos: [3]float64{15, 3, 20}},
		},
		Guide: &protocol.Guide{Bearing: 0.5, Distance: 25},
	}
	if err := v.ValidateValue(protocol.TypeFrame, frame); err != nil {
		t.Fatalf("frame: %v", err)
	}

	notice := protocol.NoticeMsg{Type: protocol.TypeNotice, ProtocolVersion: protocol.Version, Tick: 7, Kind: "TOO_FAR", Text: "closer", TTLMs: 3000}
	if err := v.ValidateValue(protocol.TypeNotice, notice); err != nil {
		t.Fatalf("notice: %v", err)
	}

	frame.Mode = "SWIMMING"
	if err := v.ValidateValue(protocol.TypeFrame, frame); err == nil {
		t.Fatalf("expected bad mode rejected")
	}
}
