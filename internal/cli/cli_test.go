package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"discipline-journal/internal/api"
	"discipline-journal/internal/clock"
	"discipline-journal/internal/journal"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

const testSecret = "cli-test-secret-value"

func newConfigDir(t *testing.T, secret string) string {
	t.Helper()
	dir := t.TempDir()
	config := "[logging]\nconsole = false\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	creds := "jwt_secret = \"" + secret + "\"\n"
	if err := os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(creds), 0600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(zerolog.Nop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedPlan(t *testing.T, dir, user string) *models.TradePlan {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	j := journal.NewService(st, clock.System{}, clock.UUIDSource{})
	plan, err := j.CreatePlan(context.Background(), user, journal.CreatePlanInput{
		Symbol:         "AAPL",
		BuyReasonTypes: []string{"breakout"},
		BuyReasonText:  "range break on volume",
		TargetType:     "price",
		TargetLow:      models.Float(110),
		TargetHigh:     models.Float(120),
		SellConditions: []string{"target hit"},
		StopType:       "price",
		StopValue:      models.Float(95),
	})
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}
	return plan
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["version"] != Version {
		t.Errorf("version = %q, want %q", got["version"], Version)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	dir := newConfigDir(t, testSecret)

	for _, args := range [][]string{
		{"config", "show", "--config", dir},
		{"config", "show", "--json", "--config", dir},
	} {
		out, err := run(t, args...)
		if err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
		if strings.Contains(out, testSecret) {
			t.Errorf("%v leaked the jwt secret:\n%s", args, out)
		}
		if !strings.Contains(out, "cli-") {
			t.Errorf("%v missing masked secret prefix:\n%s", args, out)
		}
	}
}

func TestConfigValidateServe(t *testing.T) {
	if _, err := run(t, "config", "validate", "--config", newConfigDir(t, testSecret), "--serve"); err != nil {
		t.Errorf("validate --serve error = %v", err)
	}
	if _, err := run(t, "config", "validate", "--config", newConfigDir(t, ""), "--serve"); err == nil {
		t.Error("validate --serve accepted an empty secret")
	}
	out, err := run(t, "config", "validate", "--config", newConfigDir(t, ""))
	if err != nil {
		t.Errorf("validate error = %v", err)
	}
	if !strings.Contains(out, "serve and token will refuse to start") {
		t.Errorf("validate without a secret printed no warning:\n%s", out)
	}

	out, _ = run(t, "config", "validate", "--config", newConfigDir(t, testSecret))
	if strings.Contains(out, "refuse to start") {
		t.Errorf("validate warned with a complete config:\n%s", out)
	}
}

func TestTokenIssuesVerifiableToken(t *testing.T) {
	dir := newConfigDir(t, testSecret)

	out, err := run(t, "token", "--user", "u1", "--ttl", "1h", "--config", dir)
	if err != nil {
		t.Fatalf("token error = %v", err)
	}

	auth := api.AuthConfig{
		Secret:   []byte(testSecret),
		Issuer:   "discipline-journal",
		Audience: "discipline-journal-api",
	}
	claims, err := api.ParseToken(auth, "Bearer "+strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("subject = %q, want u1", claims.Subject)
	}
	if exp := claims.ExpiresAt.Time; exp.After(time.Now().Add(time.Hour + time.Minute)) {
		t.Errorf("expiry %v ignores --ttl", exp)
	}

	if _, err := run(t, "token", "--user", "u1", "--config", newConfigDir(t, "")); err == nil {
		t.Error("token issued without a secret")
	}
	if _, err := run(t, "token", "--config", dir); err == nil {
		t.Error("token issued without --user")
	}
}

func TestPlanListAndShow(t *testing.T) {
	dir := newConfigDir(t, testSecret)
	plan := seedPlan(t, dir, "u1")

	out, err := run(t, "plan", "list", "--user", "u1", "--json", "--config", dir)
	if err != nil {
		t.Fatalf("plan list error = %v", err)
	}
	var plans []models.TradePlan
	if err := json.Unmarshal([]byte(out), &plans); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(plans) != 1 || plans[0].ID != plan.ID {
		t.Errorf("plans = %+v, want %s", plans, plan.ID)
	}

	out, err = run(t, "plan", "list", "--user", "u2", "--config", dir)
	if err != nil {
		t.Fatalf("plan list error = %v", err)
	}
	if !strings.Contains(out, "No plans found") {
		t.Errorf("other user's plans listed:\n%s", out)
	}

	out, err = run(t, "plan", "show", plan.ID, "--user", "u1", "--config", dir)
	if err != nil {
		t.Fatalf("plan show error = %v", err)
	}
	for _, want := range []string{"AAPL", "breakout", "range break on volume"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan show missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, "plan", "show", plan.ID, "--user", "u2", "--config", dir); err == nil {
		t.Error("plan show returned another user's plan")
	}
}

func TestReportWeekly(t *testing.T) {
	dir := newConfigDir(t, testSecret)

	out, err := run(t, "report", "weekly", "--user", "u1", "--week-start", "2024-03-04", "--json", "--config", dir)
	if err != nil {
		t.Fatalf("report weekly error = %v", err)
	}
	var rep models.WeeklyReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	wantStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !rep.WeekStart.Equal(wantStart) || !rep.WeekEnd.Equal(wantStart.AddDate(0, 0, 7)) {
		t.Errorf("window = [%v, %v)", rep.WeekStart, rep.WeekEnd)
	}
	if len(rep.Metrics) != 6 {
		t.Errorf("got %d metrics, want 6", len(rep.Metrics))
	}

	out, err = run(t, "report", "weekly", "--user", "u1", "--config", dir)
	if err != nil {
		t.Fatalf("report weekly error = %v", err)
	}
	if !strings.Contains(out, "Weekly Discipline Report") || !strings.Contains(out, "PCS") {
		t.Errorf("table output missing report:\n%s", out)
	}
}

func TestParseDateWindow(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
		wantEnd time.Time
	}{
		{"default week", "2024-03-04", "", false, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"explicit end", "2024-03-04", "2024-03-06", false, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{"end without start", "", "2024-03-06", true, time.Time{}},
		{"bad start", "03/04/2024", "", true, time.Time{}},
		{"inverted", "2024-03-04", "2024-03-01", true, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := parseDateWindow(tt.start, tt.end, time.UTC)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseDateWindow() = %v, want error", w)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDateWindow() error = %v", err)
			}
			if !w.End.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", w.End, tt.wantEnd)
			}
		})
	}
}

func TestBuildServerServesHealthAndMetrics(t *testing.T) {
	dir := newConfigDir(t, testSecret)
	cmd := NewRootCmd(zerolog.Nop())
	app := &App{Logger: zerolog.Nop()}
	if err := cmd.ParseFlags([]string{"--config", dir}); err != nil {
		t.Fatal(err)
	}
	if err := app.load(cmd); err != nil {
		t.Fatalf("load() error = %v", err)
	}

	srv, cleanup, err := app.buildServer(context.Background())
	if err != nil {
		t.Fatalf("buildServer() error = %v", err)
	}
	defer cleanup()

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "database") {
		t.Errorf("/health missing database component: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("/metrics status = %d", rec.Code)
	}

	if info, err := os.Stat(filepath.Join(dir, "audit")); err != nil || !info.IsDir() {
		t.Errorf("audit directory not created: %v", err)
	}
}
