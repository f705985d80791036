package masking

import "testing"

func TestMaskSecretKeepsPrefixAndSuffix(t *testing.T) {
	if got := MaskSecret("sk_live_abcdef123456"); got != "sk_live_****3456" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskSecret("abc"); got != "****" {
		t.Fatalf("unexpected short mask %q", got)
	}
}

func TestMaskSensitiveOnlyTouchesSensitiveKeys(t *testing.T) {
	masked := MaskSensitive(map[string]any{
		"user_email": "thandi@example.co.za",
		"amount":     int64(5000),
		"reason":     "goodwill",
		"nested":     map[string]any{"api_key": "k_1234567890"},
	})

	if masked["user_email"] == "thandi@example.co.za" {
		t.Fatalf("expected email to be masked")
	}
	if masked["amount"] != int64(5000) || masked["reason"] != "goodwill" {
		t.Fatalf("expected non-sensitive values unchanged, got %+v", masked)
	}
	nested, ok := masked["nested"].(map[string]any)
	if !ok || nested["api_key"] != "k_****7890" {
		t.Fatalf("expected nested key to be masked, got %+v", masked["nested"])
	}
}

func TestMaskEmailKeepsDomain(t *testing.T) {
	cases := map[string]string{
		"thandi@example.co.za": "t****@example.co.za",
		" a@b.io ":             "a****@b.io",
		"not-an-email":         "****mail",
		"@example.com":         "****.com",
		"":                     "",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSensitiveRules(t *testing.T) {
	masked := MaskSensitive(map[string]any{
		"recipient":   "sipho@example.com",
		"db_password": "hunter2hunter2",
		"coupon_code": "WELCOME10",
		"emails":      []any{"x@y.za", "zz@y.za"},
	})

	if masked["recipient"] != "s****@example.com" {
		t.Fatalf("unexpected recipient %v", masked["recipient"])
	}
	if masked["db_password"] != "****" {
		t.Fatalf("unexpected password %v", masked["db_password"])
	}
	if masked["coupon_code"] != "WELCOME10" {
		t.Fatalf("expected coupon code unchanged, got %v", masked["coupon_code"])
	}
	emails, ok := masked["emails"].([]any)
	if !ok || emails[0] != "x****@y.za" || emails[1] != "z****@y.za" {
		t.Fatalf("unexpected emails %v", masked["emails"])
	}
}
