package domain

import "testing"

func TestChangePayloadRoundTrip(t *testing.T) {
	original := User{Base: Base{ID: "u1"}, Name: "Ada", Role: RoleMember, Active: true}
	payload, err := NewChangePayloadFromValue(original)
	if err != nil {
		t.Fatalf("NewChangePayloadFromValue: %v", err)
	}
	if !payload.Defined() {
		t.Fatal("payload not defined")
	}

	var decoded User
	if err := payload.Decode(&decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ID != "u1" || decoded.Name != "Ada" || decoded.Role != RoleMember {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestChangePayloadZeroValueIsAbsent(t *testing.T) {
	var payload ChangePayload
	if payload.Defined() {
		t.Fatal("zero value reports defined")
	}
	if payload.Raw() != nil {
		t.Fatal("zero value returned bytes")
	}
	var out User
	if err := payload.Decode(&out); err == nil {
		t.Fatal("decoding an absent snapshot must fail")
	}
}

func TestChangePayloadRawIsACopy(t *testing.T) {
	payload, err := NewChangePayloadFromValue(User{Base: Base{ID: "u1"}, Name: "Ada"})
	if err != nil {
		t.Fatalf("NewChangePayloadFromValue: %v", err)
	}
	raw := payload.Raw()
	for i := range raw {
		raw[i] = 'x'
	}
	var decoded User
	if err := payload.Decode(&decoded); err != nil {
		t.Fatalf("Decode after mutating Raw copy: %v", err)
	}
	if decoded.ID != "u1" {
		t.Fatalf("decoded = %+v", decoded)
	}
}
