package validation

import "testing"

type sample struct {
	Identity    string `json:"identity" validate:"required,email,max=254"`
	Code        string `json:"code" validate:"required,len=4,number"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		in   sample
		want string
	}{
		{"valid", sample{"test@user.com", "4821", "newpass123"}, ""},
		{"missing identity", sample{"", "4821", "newpass123"}, "identity is required"},
		{"bad email", sample{"not-an-email", "4821", "newpass123"}, "identity must be a valid email address"},
		{"short code", sample{"test@user.com", "482", "newpass123"}, "code must be exactly 4 characters"},
		{"alpha code", sample{"test@user.com", "48a1", "newpass123"}, "code must contain only digits"},
		{"short password", sample{"test@user.com", "4821", "short"}, "newPassword must be at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.want {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	if !Email("test@user.com") {
		t.Fatalf("expected valid")
	}
	for _, bad := range []string{"", "test", "test@", "@user.com"} {
		if Email(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Test@User.COM "); got != "test@user.com" {
		t.Fatalf("got %q", got)
	}
}
