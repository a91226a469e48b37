package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	want := []string{"migrate", "cors", "ratelimit", "list", "user", "tag"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand %q", name)
		}
	}
	if root.PersistentFlags().Lookup("db-url") == nil {
		t.Error("Expected persistent --db-url flag")
	}
}

func TestArgumentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"cors set without origins", []string{"cors", "set", "--db-url", "postgres://unused"}, "--origins is required"},
		{"cors set negative max age", []string{"cors", "set", "--origins", "https://a.example", "--max-age", "-1", "--db-url", "postgres://unused"}, "--max-age"},
		{"ratelimit set without rate", []string{"ratelimit", "set", "--db-url", "postgres://unused"}, "--rate is required"},
		{"ratelimit set invalid rate", []string{"ratelimit", "set", "--rate", "fast", "--db-url", "postgres://unused"}, "invalid rate"},
		{"set-status invalid status", []string{"user", "set-status", "a@example.com", "ASLEEP", "--db-url", "postgres://unused"}, "invalid status"},
		{"set-status missing args", []string{"user", "set-status", "a@example.com"}, "accepts 2 arg(s)"},
		{"tag without url", []string{"tag"}, "accepts 1 arg(s)"},
		{"tag negative top", []string{"tag", "https://example.com", "--top", "-1"}, "--top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDatabaseURLRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := execute(t, "migrate")
	if err == nil || !strings.Contains(err.Error(), "--db-url or DATABASE_URL is required") {
		t.Errorf("Expected missing database URL error, got %v", err)
	}
}

func TestOptionsDatabaseURL_FlagWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")

	opts := &Options{DatabaseURL: "postgres://flag/db"}
	url, err := opts.databaseURL()
	if err != nil || url != "postgres://flag/db" {
		t.Errorf("Expected flag URL, got %q (%v)", url, err)
	}

	opts.DatabaseURL = ""
	url, err = opts.databaseURL()
	if err != nil || url != "postgres://env/db" {
		t.Errorf("Expected env URL, got %q (%v)", url, err)
	}
}

func TestTagCmd(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"/empty":   "<html><body><nav>Menu</nav></body></html>",
		"/article": "<html><body><p>Engineers at Google and Microsoft shipped Kubernetes updates.</p></body></html>",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pages[r.URL.Path]))
	}))
	// Parallel subtests run after this function returns.
	t.Cleanup(srv.Close)

	t.Run("empty page is untitled", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "tag", srv.URL+"/empty", "--provider", "rules", "--json")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		var got []string
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("Expected JSON output, got %q: %v", out, err)
		}
		if len(got) != 1 || got[0] != "Untitled" {
			t.Errorf("Expected [Untitled], got %v", got)
		}
	})

	t.Run("article candidates in text order", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "tag", srv.URL+"/article", "--provider", "rules", "--json")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		var got []string
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("Expected JSON output, got %q: %v", out, err)
		}
		want := []string{"Google", "Microsoft", "kubernetes"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("article respects top", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "tag", srv.URL+"/article", "--provider", "rules", "--top", "2")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if out != "Google\nMicrosoft\n" {
			t.Errorf("Expected the first two candidates, got %q", out)
		}
	})

	t.Run("top zero prints nothing", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "tag", srv.URL+"/article", "--provider", "rules", "--top", "0")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(out, "No tag candidates.") {
			t.Errorf("Expected no candidates, got %q", out)
		}
	})
}
