package dlp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRedactorScrubsIdentifiers(t *testing.T) {
	r, err := NewRedactor(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}

	data := map[string]interface{}{
		"Patient_Name": "John Doe",
		"Protein":      "TRACE",
		"notes":        "SSN 123-45-6789, call (555) 123-4567",
		"nested":       map[string]interface{}{"contact": "john@example.com"},
	}

	types := r.Detected(data)
	if len(types) != 3 {
		t.Fatalf("expected ssn, email and phone, got %v", types)
	}

	clean := r.Redact(data)
	if _, ok := clean["Patient_Name"]; ok {
		t.Fatal("expected name field to be dropped")
	}
	if clean["Protein"] != "TRACE" {
		t.Fatalf("expected clinical value untouched, got %v", clean["Protein"])
	}
	if clean["notes"] != "SSN ***-**-****, call (***) ***-****" {
		t.Fatalf("unexpected masked notes %q", clean["notes"])
	}
	if clean["nested"].(map[string]interface{})["contact"] != "***@***" {
		t.Fatalf("expected nested email masked, got %v", clean["nested"])
	}
	if data["notes"] == clean["notes"] {
		t.Fatal("expected input to be left unmodified")
	}
}

func TestNilRedactorPassesThrough(t *testing.T) {
	var r *Redactor
	data := map[string]interface{}{"name": "x"}
	if got := r.Redact(data); got["name"] != "x" {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestLoadRules(t *testing.T) {
	cfg, err := LoadRules("")
	if err != nil || len(cfg.Rules) == 0 {
		t.Fatalf("expected default rules, got %v (%v)", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "drop_fields: [mrn]\nrules:\n  - name: MRN\n    type: mrn\n    pattern: 'MRN\\d+'\n    mask: MRN#\n    enabled: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	cfg, err = LoadRules(path)
	if err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}
	r, err := NewRedactor(cfg)
	if err != nil {
		t.Fatalf("failed to create redactor: %v", err)
	}
	clean := r.Redact(map[string]interface{}{"MRN": "1", "comment": "see MRN42"})
	if _, ok := clean["MRN"]; ok || clean["comment"] != "see MRN#" {
		t.Fatalf("unexpected redaction %v", clean)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("rules: []\n"), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := LoadRules(empty); err == nil {
		t.Fatal("expected error for empty rules file")
	}
}
