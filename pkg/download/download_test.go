package download_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/goliatone/go-iacgen/pkg/download"
)

type spySink struct {
	acquired []download.Payload
	released []download.Handle
	trigger  func(download.Handle, string) (string, error)
	acquire  error
	release  error
}

func (s *spySink) Acquire(p download.Payload) (download.Handle, error) {
	if s.acquire != nil {
		return download.Handle{}, s.acquire
	}
	s.acquired = append(s.acquired, p)
	return download.Handle{ID: uuid.New(), Ref: p.Filename}, nil
}

func (s *spySink) Trigger(h download.Handle, filename string) (string, error) {
	if s.trigger != nil {
		return s.trigger(h, filename)
	}
	return "saved/" + filename, nil
}

func (s *spySink) Release(h download.Handle) error {
	s.released = append(s.released, h)
	return s.release
}

func TestExecutorSaveReleasesOnce(t *testing.T) {
	sink := &spySink{}
	exec := download.NewExecutor(sink)

	location, err := exec.Save(context.Background(), download.Payload{Filename: "installation.sh", Data: []byte("echo")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if location != "saved/installation.sh" {
		t.Fatalf("unexpected location %q", location)
	}
	if len(sink.acquired) != 1 || len(sink.released) != 1 {
		t.Fatalf("acquired %d released %d, want 1/1", len(sink.acquired), len(sink.released))
	}
}

func TestExecutorReleasesWhenTriggerPanics(t *testing.T) {
	sink := &spySink{trigger: func(download.Handle, string) (string, error) {
		panic("click failed")
	}}
	exec := download.NewExecutor(sink)

	location, err := exec.Save(context.Background(), download.Payload{Filename: "mysql.zip"})
	if err == nil {
		t.Fatal("expected error from panicking trigger")
	}
	if !strings.Contains(err.Error(), "click failed") {
		t.Fatalf("error %q does not mention the panic", err)
	}
	if location != "" {
		t.Fatalf("expected empty location, got %q", location)
	}
	if len(sink.released) != 1 {
		t.Fatalf("released %d handles, want exactly 1", len(sink.released))
	}
}

func TestExecutorReleasesWhenTriggerFails(t *testing.T) {
	boom := errors.New("disk full")
	sink := &spySink{trigger: func(download.Handle, string) (string, error) { return "", boom }}

	_, err := download.NewExecutor(sink).Save(context.Background(), download.Payload{Filename: "a"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped trigger error, got %v", err)
	}
	if len(sink.released) != 1 {
		t.Fatalf("released %d handles, want 1", len(sink.released))
	}
}

func TestExecutorAcquireFailureSkipsRelease(t *testing.T) {
	sink := &spySink{acquire: errors.New("no space")}
	if _, err := download.NewExecutor(sink).Save(context.Background(), download.Payload{}); err == nil {
		t.Fatal("expected acquire error")
	}
	if len(sink.released) != 0 {
		t.Fatalf("release called without a handle")
	}
}

func TestExecutorReportsReleaseError(t *testing.T) {
	sink := &spySink{release: errors.New("revoke failed")}
	if _, err := download.NewExecutor(sink).Save(context.Background(), download.Payload{Filename: "x"}); err == nil {
		t.Fatal("expected release error to surface")
	}
}

func TestExecutorDefaultsFilename(t *testing.T) {
	sink := &spySink{}
	if _, err := download.NewExecutor(sink).Save(context.Background(), download.Payload{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := sink.acquired[0].Filename; got != download.DefaultFilename {
		t.Fatalf("filename %q, want %q", got, download.DefaultFilename)
	}
}

func TestFileSinkCollisionSuffix(t *testing.T) {
	dir := t.TempDir()
	exec := download.NewExecutor(download.NewFileSink(dir))

	var locations []string
	for _, body := range []string{"one", "two", "three"} {
		location, err := exec.Save(context.Background(), download.Payload{Filename: "EC2Terraform.zip", Data: []byte(body)})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		locations = append(locations, filepath.Base(location))
	}

	want := []string{"EC2Terraform.zip", "EC2Terraform (1).zip", "EC2Terraform (2).zip"}
	if diff := cmp.Diff(want, locations); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(dir, "EC2Terraform (1).zip"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("unexpected content %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 files and no temp leftovers, got %d", len(entries))
	}
}

func TestFileSinksNeverReplaceEachOther(t *testing.T) {
	dir := t.TempDir()
	const sinks = 4

	var wg sync.WaitGroup
	errs := make(chan error, sinks)
	for i := 0; i < sinks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			exec := download.NewExecutor(download.NewFileSink(dir))
			payload := download.Payload{Filename: "main.tf", Data: []byte(fmt.Sprintf("sink-%d", i))}
			if _, err := exec.Save(context.Background(), payload); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var contents []string
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		contents = append(contents, string(data))
	}
	sort.Strings(contents)
	want := []string{"sink-0", "sink-1", "sink-2", "sink-3"}
	if diff := cmp.Diff(want, contents); diff != "" {
		t.Fatalf("saved files mismatch (-want +got):\n%s", diff)
	}
}

func TestFileSinkSkipsExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.tf"), []byte("mine"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink := download.NewFileSink(dir)
	h, err := sink.Acquire(download.Payload{Data: []byte("generated")})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	location, err := sink.Trigger(h, "main.tf")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := sink.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if filepath.Base(location) != "main (1).tf" {
		t.Fatalf("unexpected location %q", location)
	}
	data, err := os.ReadFile(filepath.Join(dir, "main.tf"))
	if err != nil || string(data) != "mine" {
		t.Fatalf("existing file changed: %q %v", data, err)
	}
}

func TestFileSinkRemovesTempOnFailure(t *testing.T) {
	dir := t.TempDir()
	sink := download.NewFileSink(dir)

	h, err := sink.Acquire(download.Payload{Data: []byte("x")})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := sink.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(h.Ref); !os.IsNotExist(err) {
		t.Fatalf("temp file still present: %v", err)
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	location, err := download.NewExecutor(download.NewWriterSink(&buf)).Save(context.Background(), download.Payload{
		Filename: "installation.sh",
		Data:     []byte("#!/bin/sh\n"),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if location != "-" || buf.String() != "#!/bin/sh\n" {
		t.Fatalf("unexpected result %q %q", location, buf.String())
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Docker Ubuntu Install.zip": "Docker Ubuntu Install.zip",
		"../../etc/passwd":          "passwd",
		`a\b:c.zip`:                 "b_c.zip",
		"":                          download.DefaultFilename,
		"  ":                        download.DefaultFilename,
	}
	for in, want := range cases {
		if got := download.SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
