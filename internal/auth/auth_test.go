package auth

import "testing"

func TestVerifyRoundTrip(t *testing.T) {
	s := NewStore()
	if err := s.SetPassword("sysop", "hunter2"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	ok, err := s.Verify("sysop", "hunter2")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Errorf("Verify with correct password = false, want true")
	}

	ok, err = s.Verify("sysop", "wrong")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Errorf("Verify with wrong password = true, want false")
	}
}

func TestVerifyUnknownAccount(t *testing.T) {
	s := NewStore()
	ok, err := s.Verify("nobody", "anything")
	if err != ErrNoSuchAccount {
		t.Errorf("err = %v, want ErrNoSuchAccount", err)
	}
	if ok {
		t.Errorf("Verify for unknown account = true, want false")
	}
}

func TestHas(t *testing.T) {
	s := NewStore()
	if s.Has("sysop") {
		t.Fatalf("Has reported true before SetPassword")
	}
	if err := s.SetPassword("sysop", "x"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if !s.Has("sysop") {
		t.Errorf("Has reported false after SetPassword")
	}
}
