package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) (*ConfigManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return NewConfigManager(cfg, path), path
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"recipient", KindRecipient},
		{"Recipients", KindRecipient},
		{"cc", KindCC},
		{"ccs", KindCC},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseKind("senders"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestConfigManager_RecipientCRUD(t *testing.T) {
	m, path := newTestManager(t)

	if err := m.Add(KindRecipient, "Jane", "Jane Doe", "jane@example.com"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Add(KindRecipient, "jane", "Other", "other@example.com"); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	r, err := m.Get(KindRecipient, "JANE")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if r.Key != "jane" || r.Address != "jane@example.com" {
		t.Errorf("Get() = %+v", r)
	}

	if err := m.Update(KindRecipient, "jane", "", "jane.doe@example.com"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	persisted, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := persisted.Email.Recipients["jane"]; got.Name != "Jane Doe" || got.Address != "jane.doe@example.com" || got.Key != "" {
		t.Errorf("persisted recipient = %+v", got)
	}

	if err := m.Add(KindRecipient, "bob", "Bob Stone", "bob@example.com"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	list, err := m.List(KindRecipient)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Key != "bob" || list[1].Key != "jane" {
		t.Errorf("List() = %+v", list)
	}

	if err := m.Remove(KindRecipient, "jane"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := m.Get(KindRecipient, "jane"); !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("expected ErrRecipientNotFound, got %v", err)
	}
	if err := m.Remove(KindRecipient, "jane"); !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("expected ErrRecipientNotFound, got %v", err)
	}
}

func TestConfigManager_AddValidation(t *testing.T) {
	m, _ := newTestManager(t)

	tests := []struct {
		name    string
		key     string
		rname   string
		email   string
		wantErr error
	}{
		{"missing key", "", "Jane", "jane@example.com", nil},
		{"missing name", "jane", "", "jane@example.com", nil},
		{"bad email", "jane", "Jane", "not-an-email", ErrInvalidEmail},
		{"dot after at", "jane", "Jane", "jane@.com", ErrInvalidEmail},
		{"display name form", "jane", "Jane", "Jane <jane@example.com>", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Add(KindRecipient, tt.key, tt.rname, tt.email)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigManager_CCCRUD(t *testing.T) {
	m, path := newTestManager(t)

	if err := m.Add(KindCC, "ops", "Admin Team", "admin@example.com"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Add(KindCC, "ops", "Admin Again", "admin2@example.com"); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	ccs, err := m.List(KindCC)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ccs) != 1 || ccs[0].Key != "ops" {
		t.Fatalf("List() = %+v", ccs)
	}

	if err := m.Update(KindCC, "ops", "", "ops@example.com"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	cc, err := m.Get(KindCC, "admin team")
	if err != nil || cc.Address != "ops@example.com" || cc.Key != "ops" {
		t.Errorf("Get() = %+v, %v", cc, err)
	}

	persisted, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(persisted.Email.DefaultCC) != 1 || persisted.Email.DefaultCC[0].Key != "ops" {
		t.Errorf("persisted default_cc = %+v", persisted.Email.DefaultCC)
	}

	if err := m.Remove(KindCC, "ops"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := m.Remove(KindCC, "ops"); !errors.Is(err, ErrCCNotFound) {
		t.Errorf("expected ErrCCNotFound, got %v", err)
	}
}

func TestConfigManager_CCWithoutStoredKey(t *testing.T) {
	m, _ := newTestManager(t)
	m.config.Email.DefaultCC = []RecipientConfig{{Name: "Mary Smith", Address: "mary@example.com"}}

	cc, err := m.Get(KindCC, "Mary")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if cc.Key != "mary" {
		t.Errorf("Key = %q, want first name", cc.Key)
	}

	if err := m.Update(KindCC, "mary", "", "mary.smith@example.com"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := m.config.Email.DefaultCC[0]; got.Key != "mary" || got.Address != "mary.smith@example.com" {
		t.Errorf("DefaultCC[0] = %+v", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@example.org"}
	invalid := []string{"", "@b.co", "a@b", "a@.co", "a@co.", "A <a@b.co>"}

	for _, e := range valid {
		if !isValidEmail(e) {
			t.Errorf("isValidEmail(%q) = false", e)
		}
	}
	for _, e := range invalid {
		if isValidEmail(e) {
			t.Errorf("isValidEmail(%q) = true", e)
		}
	}
}
