package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListModelsAndFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"models":[
			{"name":"llama3.2-vision","details":{"family":"MLlama","families":["mllama"]}},
			{"name":"llava","details":{"family":"llama","families":["llama","CLIP"]}},
			{"name":"qwen","details":{"family":"qwen2","families":["qwen2"]}},
			{"name":"bare","details":{}}
		]}`))
	}))
	defer srv.Close()

	models, err := NewClient(srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 4 {
		t.Fatalf("got %d models, want 4", len(models))
	}

	vision := FilterVisionModels(models)
	if len(vision) != 2 || vision[0].Name != "llama3.2-vision" || vision[1].Name != "llava" {
		t.Errorf("FilterVisionModels = %+v", vision)
	}
}

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "llava" || req.Stream || req.Format != "json" {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(req.Prompt, "A sequence of 6 sprites") {
			t.Errorf("prompt does not carry the frame count")
		}
		w.Write([]byte(`{"response":"  RUN\n"}`))
	}))
	defer srv.Close()

	label, err := NewClient(srv.URL).Classify(context.Background(), 6, "llava")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if label != "run" {
		t.Errorf("label = %q, want %q", label, "run")
	}
}

func TestClassifyLowercasesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"{\"Name\":\"Walk Right\"}"}`))
	}))
	defer srv.Close()

	label, err := NewClient(srv.URL).Classify(context.Background(), 4, "llava")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if want := `{"name":"walk right"}`; label != want {
		t.Errorf("label = %q, want %q", label, want)
	}
	if got := DisplayName(label); got != "walk right" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}},
		{"malformed", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL).Classify(context.Background(), 3, "llava")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("err = %v, want ErrUnavailable", err)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(url).Classify(context.Background(), 3, "llava")
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestParseProfile(t *testing.T) {
	raw := `{"id":"walk_right_01","name":"Walk Right","classification":"walk","frames":[{"index":0,"duration":1.5,"tags":["footstep"]}]}`
	p, ok := ParseProfile(raw)
	if !ok {
		t.Fatal("expected profile to parse")
	}
	if p.Classification != "walk" || len(p.Frames) != 1 || p.Frames[0].Duration != 1.5 {
		t.Errorf("profile = %+v", p)
	}

	if _, ok := ParseProfile("walk"); ok {
		t.Error("plain label parsed as profile")
	}
	if _, ok := ParseProfile("{broken"); ok {
		t.Error("malformed JSON parsed as profile")
	}

	if got := DisplayName(raw); got != "Walk Right" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := DisplayName("idle"); got != "idle" {
		t.Errorf("DisplayName = %q", got)
	}
}
