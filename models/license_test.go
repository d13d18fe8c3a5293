package models

import "testing"

func TestNewLicense_DefaultsActive(t *testing.T) {
	license := NewLicense("CTP-ABCD-EFGH-JKLM")

	if license.Key != "CTP-ABCD-EFGH-JKLM" {
		t.Errorf("Expected key 'CTP-ABCD-EFGH-JKLM', got '%s'", license.Key)
	}

	if !license.Active {
		t.Errorf("Expected new license to be active")
	}
}

func TestLicense_Honored(t *testing.T) {
	tests := []struct {
		name    string
		license *License
		want    bool
	}{
		{name: "nil license", license: nil, want: false},
		{name: "active license", license: &License{Key: "CTP-AAAA-BBBB-CCCC", Active: true}, want: true},
		{name: "inactive license", license: &License{Key: "CTP-AAAA-BBBB-CCCC", Active: false}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.license.Honored(); got != tt.want {
				t.Errorf("Expected Honored()=%v, got %v", tt.want, got)
			}
		})
	}
}
