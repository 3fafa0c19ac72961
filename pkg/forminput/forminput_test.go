package forminput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iacgen/pkg/model"
)

func mysqlForm() model.FormModel {
	return model.FormModel{
		OperationID: "grafanaMySQL",
		Fields: []model.Field{
			{Name: "name", Type: model.FieldTypeString, Required: true},
			{Name: "port", Type: model.FieldTypeInteger, Default: 3306},
			{Name: "engine", Type: model.FieldTypeSelect, Default: "mysql", Options: []model.Option{
				{Label: "MySQL", Value: "mysql"},
				{Label: "MariaDB", Value: "mariadb"},
			}},
			{Name: "tls", Type: model.FieldTypeToggle, Nested: []model.Field{
				{Name: "ca_cert", Type: model.FieldTypeString},
				{Name: "skip_verify", Type: model.FieldTypeBoolean, Default: false},
			}},
			{Name: "hosts", Type: model.FieldTypeArray, Required: true, Items: &model.Field{Name: "hosts", Type: model.FieldTypeString}},
			{Name: "pods", Type: model.FieldTypeArray, Nested: []model.Field{
				{Name: "name", Type: model.FieldTypeString},
				{Name: "replicas", Type: model.FieldTypeInteger, Default: 1},
			}},
		},
	}
}

func TestDefaults(t *testing.T) {
	got := Defaults(mysqlForm())
	want := Values{
		"port":   3306,
		"engine": Option{Label: "MySQL", Value: "mysql"},
		"tls":    Off(Values{"skip_verify": false}),
		"hosts":  []any{""},
		"pods":   []any{Values{"replicas": 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode(t *testing.T) {
	raw := map[string]any{
		"name":   "metrics",
		"engine": "MariaDB",
		"tls":    map[string]any{"ca_cert": "PEM"},
		"hosts":  "a.example, b.example",
		"pods":   []any{map[string]any{"name": "web", "replicas": "3"}},
	}
	got, err := Decode(mysqlForm(), raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Values{
		"name":   "metrics",
		"engine": Option{Label: "MariaDB", Value: "mariadb"},
		"tls":    On(Values{"ca_cert": "PEM"}),
		"hosts":  []any{"a.example", "b.example"},
		"pods":   []any{Values{"name": "web", "replicas": "3"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeToggleForms(t *testing.T) {
	form := mysqlForm()
	for name, raw := range map[string]any{"false": false, "null": nil} {
		got, err := Decode(form, map[string]any{"tls": raw})
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if toggle := got["tls"].(Toggle); toggle.Enabled {
			t.Fatalf("%s: expected disabled toggle", name)
		}
	}

	got, err := Decode(form, map[string]any{"tls": true})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(On(Values{"skip_verify": false}), got["tls"]); diff != "" {
		t.Fatalf("enabled toggle mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsUnknownAndInvalid(t *testing.T) {
	form := mysqlForm()
	cases := map[string]map[string]any{
		"unknown field":  {"nmae": "typo"},
		"unknown option": {"engine": "postgres"},
		"nested unknown": {"tls": map[string]any{"cert": "x"}},
		"bad boolean":    {"tls": map[string]any{"skip_verify": "maybe"}},
		"bad toggle":     {"tls": "yes"},
	}
	for name, raw := range cases {
		if _, err := Decode(form, raw); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := Values{
		"tls":  On(Values{"ca_cert": "PEM"}),
		"pods": []any{Values{"name": "web"}},
	}
	clone := original.Clone()
	clone["tls"].(Toggle).Fields["ca_cert"] = "changed"
	clone["pods"].([]any)[0].(Values)["name"] = "changed"

	if original["tls"].(Toggle).Fields["ca_cert"] != "PEM" {
		t.Fatalf("toggle fields shared with clone")
	}
	if original["pods"].([]any)[0].(Values)["name"] != "web" {
		t.Fatalf("array rows shared with clone")
	}
}

func TestLoadFileAndAssignments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	content := "name: metrics\ntls:\n  ca_cert: PEM\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	raw, err = ApplyAssignments(raw, []string{"port=3307", "tls.skip_verify=true"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	want := map[string]any{
		"name": "metrics",
		"port": 3307,
		"tls":  map[string]any{"ca_cert": "PEM", "skip_verify": true},
	}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	if _, err := ApplyAssignments(nil, []string{"novalue"}); err == nil {
		t.Fatalf("expected error for malformed assignment")
	}
}
