package auth

import "testing"

func TestGeneratePublicID_Length(t *testing.T) {
	id, err := GeneratePublicID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != publicIDLength {
		t.Fatalf("len(id) = %d, want %d", len(id), publicIDLength)
	}
}

func TestGeneratePublicID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := GeneratePublicID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
