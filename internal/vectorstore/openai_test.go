package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	clock := &fakeClock{now: time.Unix(0, 0)}
	c, err := NewClient("test-key", newPolicy(clock, time.Minute, time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.SetBaseURL(srv.URL)
	c.SetSleep(func(time.Duration) {})
	return c
}

func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	c := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("purpose"); got != "assistants" {
			t.Errorf("unexpected purpose %q", got)
		}
		_, _ = w.Write([]byte(`{"id":"file-abc"}`))
	})

	id, err := c.UploadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if id != "file-abc" {
		t.Fatalf("unexpected file id %q", id)
	}
}

func TestCreateVectorStore(t *testing.T) {
	c := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vector_stores" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body createStoreRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Name != "vs_s1_doc.pdf" || len(body.FileIDs) != 1 {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"id":"vs-xyz","status":"in_progress"}`))
	})

	id, err := c.CreateVectorStore(context.Background(), "vs_s1_doc.pdf", []string{"file-abc"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "vs-xyz" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestCreateVectorStoreRequiresFiles(t *testing.T) {
	c := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.CreateVectorStore(context.Background(), "vs", nil); err == nil {
		t.Fatal("expected error for empty file list")
	}
}

func TestWaitForFileReadyStatuses(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		wantOK   bool
		wantErr  string
	}{
		{name: "completes", statuses: []string{"queued", "in_progress", "completed"}, wantOK: true},
		{name: "fails", statuses: []string{"in_progress", "failed"}, wantErr: "indexing failed"},
		{name: "cancelled", statuses: []string{"cancelled"}, wantErr: "cancelled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			i := 0
			c := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
				status := tc.statuses[i]
				if i < len(tc.statuses)-1 {
					i++
				}
				if status == "failed" {
					_, _ = w.Write([]byte(`{"id":"f","status":"failed","last_error":{"message":"parse error"}}`))
					return
				}
				_, _ = w.Write([]byte(`{"id":"f","status":"` + status + `"}`))
			})

			ok, err := c.WaitForFileReady(context.Background(), "vs-1", "file-1")
			if ok != tc.wantOK {
				t.Fatalf("ok=%v want %v (err=%v)", ok, tc.wantOK, err)
			}
			if tc.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tc.wantErr)) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestWaitForFileReadyRetriesNotFound(t *testing.T) {
	calls := 0
	c := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"no such file"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"f","status":"completed"}`))
	})

	ok, err := c.WaitForFileReady(context.Background(), "vs-1", "file-1")
	if !ok || err != nil {
		t.Fatalf("expected eventual success, got ok=%v err=%v", ok, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 polls, got %d", calls)
	}
}

func TestDeleteIdempotentOnNotFound(t *testing.T) {
	c := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"gone"}}`))
	})

	if !c.DeleteVectorStore(context.Background(), "vs-gone") {
		t.Fatal("expected deleting absent vector store to succeed")
	}
	if !c.DeleteFile(context.Background(), "file-gone") {
		t.Fatal("expected deleting absent file to succeed")
	}
}

func TestCleanupDeletesIndexBeforeFile(t *testing.T) {
	var order []string
	slept := false
	c := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"deleted":true}`))
	})
	c.SetSleep(func(time.Duration) { slept = true })

	if !c.Cleanup(context.Background(), "vs-1", "file-1") {
		t.Fatal("expected cleanup success")
	}
	if len(order) != 2 || order[0] != "DELETE /vector_stores/vs-1" || order[1] != "DELETE /files/file-1" {
		t.Fatalf("unexpected deletion order %v", order)
	}
	if !slept {
		t.Fatal("expected propagation delay between deletions")
	}
}
