package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/polyxo/gridctl/internal/api"
)

func TestParseResultSpec(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "weights.bin")
	if err := os.WriteFile(dataFile, []byte("file payload"), 0o600); err != nil {
		t.Fatalf("writing data file: %v", err)
	}

	cases := []struct {
		spec string
		want api.ResultDefinition
	}{
		{"metrics", api.ResultDefinition{Name: "metrics"}},
		{"weights bytes payload", api.ResultDefinition{Name: "weights", Data: []byte("payload")}},
		{"weights file " + dataFile, api.ResultDefinition{Name: "weights", Data: []byte("file payload")}},
	}
	for _, tc := range cases {
		got, err := parseResultSpec(tc.spec)
		if err != nil {
			t.Errorf("parseResultSpec(%q): %v", tc.spec, err)
			continue
		}
		if got.Name != tc.want.Name || string(got.Data) != string(tc.want.Data) {
			t.Errorf("parseResultSpec(%q) = %+v, want %+v", tc.spec, got, tc.want)
		}
	}

	for _, spec := range []string{"", "a b", "a frob c", "a bytes b c"} {
		if _, err := parseResultSpec(spec); err == nil {
			t.Errorf("parseResultSpec(%q) accepted a malformed spec", spec)
		}
	}
}

func TestResultCreateEndToEnd(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sessions/sess-a/results" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Results []api.ResultDefinition `json:"results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if len(body.Results) != 2 {
			t.Fatalf("results = %+v", body.Results)
		}
		if body.Results[0].Name != "metrics" || body.Results[0].Data != nil {
			t.Errorf("first definition = %+v", body.Results[0])
		}
		if body.Results[1].Name != "weights" || string(body.Results[1].Data) != "payload" {
			t.Errorf("second definition = %+v", body.Results[1])
		}
		json.NewEncoder(w).Encode([]api.Result{
			{ID: "r-1", Name: "metrics", SessionID: "sess-a"},
			{ID: "r-2", Name: "weights", SessionID: "sess-a"},
		})
	}))
	t.Cleanup(srv.Close)

	out := captureStdout(t, func() {
		if _, err := executeCommand(rootCmd,
			"result", "create", "sess-a", "--endpoint", srv.URL,
			"-r", "metrics", "-r", "weights bytes payload"); err != nil {
			t.Errorf("result create: %v", err)
		}
	})
	for _, want := range []string{"r-1", "r-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing created result %q:\n%s", want, out)
		}
	}
}

func TestResultUploadDataEndToEnd(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dataFile := filepath.Join(t.TempDir(), "weights.bin")
	if err := os.WriteFile(dataFile, []byte("file payload"), 0o600); err != nil {
		t.Fatalf("writing data file: %v", err)
	}

	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sessions/sess-a/results/r-1/data" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Data []byte `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		got = body.Data
	}))
	t.Cleanup(srv.Close)

	if _, err := executeCommand(rootCmd,
		"result", "upload-data", "sess-a", "r-1",
		"--endpoint", srv.URL, "--from-file", dataFile); err != nil {
		t.Fatalf("result upload-data: %v", err)
	}
	if string(got) != "file payload" {
		t.Errorf("uploaded data = %q", got)
	}
}
