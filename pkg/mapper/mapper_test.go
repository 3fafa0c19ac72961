package mapper

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/model"
)

func mysqlForm() model.FormModel {
	return model.FormModel{
		OperationID: "grafanaMySQL",
		Fields: []model.Field{
			{Name: "name", Type: model.FieldTypeString, Required: true},
			{Name: "url", Type: model.FieldTypeString, Default: "localhost:3306"},
			{Name: "max_open_conns", Type: model.FieldTypeInteger},
			{Name: "timeout", Type: model.FieldTypeNumber},
			{Name: "tls", Type: model.FieldTypeToggle, Nested: []model.Field{
				{Name: "ca_cert", Type: model.FieldTypeString},
				{Name: "skip_verify", Type: model.FieldTypeBoolean},
			}},
			{Name: "confirm_password", Type: model.FieldTypeString, Metadata: map[string]string{model.MetadataBodyOmit: "true"}},
			{Name: "database", Type: model.FieldTypeString, Metadata: map[string]string{model.MetadataBodyKey: "jsonData.database"}},
		},
	}
}

func dockerForm() model.FormModel {
	return model.FormModel{
		OperationID: "dockerInstall",
		Fields: []model.Field{
			{Name: "os", Type: model.FieldTypeSelect, Required: true, Options: []model.Option{
				{Label: "Ubuntu", Value: "ubuntu"},
				{Label: "CentOS", Value: "centos"},
			}},
			{Name: "environment", Type: model.FieldTypeSelect, Options: []model.Option{
				{Label: "Docker", Value: "Docker"},
				{Label: "Podman", Value: "Podman"},
			}},
		},
	}
}

func TestDockerInstallMapsOptionValues(t *testing.T) {
	in := forminput.Values{
		"os":          forminput.Option{Label: "Ubuntu", Value: "ubuntu"},
		"environment": forminput.Option{Label: "Docker", Value: "Docker"},
	}
	body, err := DockerInstall().Map(dockerForm(), in)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := Body{"os": "ubuntu", "environment": "Docker"}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	body, err = DockerInstall().Map(dockerForm(), forminput.Values{
		"os":          forminput.Option{Label: "CentOS", Value: "CentOS"},
		"environment": "Podman",
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if diff := cmp.Diff(Body{"os": "CentOS", "environment": "Podman"}, body); diff != "" {
		t.Fatalf("values must pass through unchanged (-want +got):\n%s", diff)
	}

	_, err = DockerInstall().Map(dockerForm(), forminput.Values{"os": forminput.Option{Value: "centos"}})
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "environment" {
		t.Fatalf("expected missing environment error, got %v", err)
	}
}

func TestDockerInstallUsesFormDefaultEnvironment(t *testing.T) {
	form := dockerForm()
	form.Fields[1].Default = "Docker"
	body, err := DockerInstall().Map(form, forminput.Values{"os": forminput.Option{Value: "ubuntu"}})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if diff := cmp.Diff(Body{"os": "ubuntu", "environment": "Docker"}, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestDisabledToggleMapsToNull(t *testing.T) {
	in := forminput.Values{
		"name": "metrics",
		"tls":  forminput.Off(forminput.Values{"ca_cert": "-----BEGIN CERTIFICATE-----", "skip_verify": true}),
	}
	body, err := Default().Map(mysqlForm(), in)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	tls, present := body["tls"]
	if !present || tls != nil {
		t.Fatalf("expected tls key with null value, got %#v (present=%v)", tls, present)
	}

	encoded, err := body.JSON()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(encoded, []byte(`"tls":null`)) {
		t.Fatalf("expected tls:null in %s", encoded)
	}
}

func TestEnabledToggleMapsGroup(t *testing.T) {
	in := forminput.Values{
		"name": "metrics",
		"tls":  forminput.On(forminput.Values{"ca_cert": "PEM", "skip_verify": "true"}),
	}
	body, err := Default().Map(mysqlForm(), in)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := map[string]any{"ca_cert": "PEM", "skip_verify": true}
	if diff := cmp.Diff(want, body["tls"]); diff != "" {
		t.Fatalf("tls mismatch (-want +got):\n%s", diff)
	}
}

func TestMapCoercesNumbersAndAppliesMetadata(t *testing.T) {
	in := forminput.Values{
		"name":             "metrics",
		"max_open_conns":   "10",
		"timeout":          "2.5",
		"confirm_password": "secret",
		"database":         "grafana",
	}
	body, err := Default().Map(mysqlForm(), in)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := Body{
		"name":              "metrics",
		"url":               "localhost:3306",
		"max_open_conns":    int64(10),
		"timeout":           2.5,
		"tls":               nil,
		"jsonData.database": "grafana",
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestMapRejectsUnparseableNumbers(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
	}{
		{name: "text", value: "ten", want: `"ten" is not a whole number`},
		{name: "fraction", value: 2.5, want: "2.5 is not a whole number"},
		{name: "above range", value: float64(1e19), want: "1e+19 is out of range"},
		{name: "below range", value: float64(-1e19), want: "-1e+19 is out of range"},
		{name: "max int64 rounded up", value: float64(math.MaxInt64), want: "9.223372036854776e+18 is out of range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := Default().Map(mysqlForm(), forminput.Values{"max_open_conns": tc.value})
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) || fieldErr.Field != "max_open_conns" {
				t.Fatalf("expected field error for max_open_conns, got body=%v err=%v", body, err)
			}
			if fieldErr.Message != tc.want {
				t.Fatalf("unexpected message %q, want %q", fieldErr.Message, tc.want)
			}
		})
	}
}

func TestMapAcceptsIntegerBounds(t *testing.T) {
	body, err := Default().Map(mysqlForm(), forminput.Values{"max_open_conns": float64(math.MinInt64)})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got := body["max_open_conns"]; got != int64(math.MinInt64) {
		t.Fatalf("unexpected value %#v", got)
	}
}

func TestMapArrays(t *testing.T) {
	form := model.FormModel{Fields: []model.Field{
		{Name: "hosts", Type: model.FieldTypeArray, Required: true, Items: &model.Field{Name: "hosts", Type: model.FieldTypeString}},
		{Name: "pods", Type: model.FieldTypeArray, Nested: []model.Field{
			{Name: "name", Type: model.FieldTypeString},
			{Name: "replicas", Type: model.FieldTypeInteger},
		}},
	}}

	in := forminput.Values{
		"hosts": []any{"b.example", "a.example"},
		"pods": []any{
			forminput.Values{"name": "web", "replicas": "2"},
			forminput.Values{"name": "worker", "replicas": 1},
		},
	}
	body, err := Default().Map(form, in)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := Body{
		"hosts": []any{"b.example", "a.example"},
		"pods": []any{
			map[string]any{"name": "web", "replicas": int64(2)},
			map[string]any{"name": "worker", "replicas": int64(1)},
		},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	if _, err := Default().Map(form, forminput.Values{"hosts": []any{}}); err == nil {
		t.Fatalf("expected error for empty required array")
	}
}

func TestMapIsDeterministicAndPure(t *testing.T) {
	in := forminput.Values{
		"name":           "metrics",
		"max_open_conns": "10",
		"tls":            forminput.On(forminput.Values{"ca_cert": "PEM"}),
	}
	snapshot := in.Clone()

	first, err := Default().Map(mysqlForm(), in)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	second, err := Default().Map(mysqlForm(), in)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	a, _ := first.JSON()
	b, _ := second.JSON()
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical bodies:\n%s\n%s", a, b)
	}

	first["tls"].(map[string]any)["ca_cert"] = "mutated"
	if diff := cmp.Diff(snapshot, in); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestWithDefaultsDoesNotOverride(t *testing.T) {
	m := WithDefaults(Default(), map[string]any{"type": "mysql", "name": "ignored"})
	body, err := m.Map(mysqlForm(), forminput.Values{"name": "metrics"})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if body["type"] != "mysql" || body["name"] != "metrics" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if diff := cmp.Diff([]string{NameDefault, NameDockerInstall}, r.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.Get(""); err != nil {
		t.Fatalf("empty name should select default: %v", err)
	}
	if _, err := r.Get("missing"); err == nil {
		t.Fatalf("expected error for unknown mapper")
	}

	r.Register("Upper", Func(func(model.FormModel, forminput.Values) (Body, error) {
		return Body{"ok": true}, nil
	}))
	m, err := r.Get("upper")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := m.Map(model.FormModel{}, nil)
	if body["ok"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}
