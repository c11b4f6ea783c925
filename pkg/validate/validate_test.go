package validate

import "testing"

func TestStringRequired(t *testing.T) {
	if err := String(nil, "title", 100, true); err == nil {
		t.Fatal("expected error for required nil string")
	}
	if err := String(nil, "title", 100, false); err != nil {
		t.Fatalf("expected no error for optional nil string, got %v", err)
	}
	long := "aaaaaaaaaa"
	if err := String(&long, "title", 5, false); err == nil {
		t.Fatal("expected length error")
	}
}

func TestBoolean(t *testing.T) {
	b, err := Boolean("yes", "starred")
	if err != nil || b == nil || !*b {
		t.Fatalf("expected true, got %v err=%v", b, err)
	}
	b, err = Boolean("no", "starred")
	if err != nil || b == nil || *b {
		t.Fatalf("expected false, got %v err=%v", b, err)
	}
	if _, err := Boolean("maybe", "starred"); err == nil {
		t.Fatal("expected error for unrecognized boolean alias")
	}
}

func TestIntegerRejectsBool(t *testing.T) {
	if _, err := Integer(true, "limit", 0, 100); err == nil {
		t.Fatal("expected boolean rejection")
	}
}

func TestIntegerRange(t *testing.T) {
	n, err := Integer(50, "limit", 1, 100)
	if err != nil || n == nil || *n != 50 {
		t.Fatalf("expected 50, got %v err=%v", n, err)
	}
	if _, err := Integer(500, "limit", 1, 100); err == nil {
		t.Fatal("expected range error")
	}
}

func TestConversationIDCharset(t *testing.T) {
	if err := ConversationID("abc-123_XYZ", "id"); err != nil {
		t.Fatalf("expected valid id to pass: %v", err)
	}
	if err := ConversationID("abc 123", "id"); err == nil {
		t.Fatal("expected space to be rejected")
	}
	if err := ConversationID("", "id"); err == nil {
		t.Fatal("expected empty id to be rejected as required")
	}
}
