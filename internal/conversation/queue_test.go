package conversation

import "testing"

func TestEncodePayload_MintsID(t *testing.T) {
	payload, body, err := encodePayload(queuePayload{
		Kind:        jobTypeTurn,
		Turn:        &TurnRequest{SessionID: "sess-1", Message: "chest pain"},
		TrackStatus: true,
	})
	if err != nil {
		t.Fatalf("encodePayload() error = %v", err)
	}
	if payload.ID == "" {
		t.Fatal("encodePayload() should mint a job ID")
	}

	decoded, err := decodePayload(body)
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}
	if decoded.ID != payload.ID || decoded.Kind != jobTypeTurn || !decoded.TrackStatus {
		t.Errorf("decoded = %+v, want match for %+v", decoded, payload)
	}
	if decoded.Turn == nil || decoded.Turn.SessionID != "sess-1" {
		t.Errorf("decoded turn = %+v", decoded.Turn)
	}
}

func TestEncodePayload_KeepsCallerID(t *testing.T) {
	payload, _, err := encodePayload(queuePayload{
		ID:     "job-42",
		Kind:   jobTypeCreate,
		Create: &CreateSessionRequest{Source: "api"},
	})
	if err != nil {
		t.Fatalf("encodePayload() error = %v", err)
	}
	if payload.ID != "job-42" {
		t.Errorf("payload ID = %q, want job-42", payload.ID)
	}
}

func TestWithoutJobTracking(t *testing.T) {
	payload := queuePayload{TrackStatus: true}
	WithoutJobTracking()(&payload)
	if payload.TrackStatus {
		t.Error("WithoutJobTracking should clear TrackStatus")
	}
}

func TestDecodePayload_RejectsGarbage(t *testing.T) {
	if _, err := decodePayload("{not json"); err == nil {
		t.Fatal("decodePayload() should fail on malformed input")
	}
}
