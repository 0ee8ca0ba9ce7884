package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/sentcheck/internal/check"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/policy"
	"github.com/ppiankov/sentcheck/internal/record"
	"github.com/spf13/viper"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	v.SetEnvPrefix("SENTCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	def := model.DefaultConfig()
	if cfg.Parser.BaseURL != def.Parser.BaseURL || cfg.Policy.Default != policy.Lenient {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if cfg.Parser.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Parser.Timeout)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SENTCHECK_PARSER_BASE_URL", "http://parser:9000")
	t.Setenv("SENTCHECK_POLICY_DEFAULT", "strict")
	t.Setenv("SENTCHECK_PARSER_TIMEOUT", "5s")
	t.Setenv("SENTCHECK_CONCURRENCY_WORKERS", "12")

	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Parser.BaseURL != "http://parser:9000" {
		t.Errorf("Expected env base URL, got %s", cfg.Parser.BaseURL)
	}
	if cfg.Policy.Default != "strict" {
		t.Errorf("Expected env policy, got %s", cfg.Policy.Default)
	}
	if cfg.Parser.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Parser.Timeout)
	}
	if cfg.Concurrency.Workers != 12 {
		t.Errorf("Expected 12 workers, got %d", cfg.Concurrency.Workers)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
parser:
  backend: conllu
  conllu_path: /data/en.conllu
policy:
  ruleset: narrow
  overrides:
    strict:
      root_tags: [VERB, AUX]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := newTestViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Parser.Backend != "conllu" || cfg.Parser.ConllUPath != "/data/en.conllu" {
		t.Errorf("Unexpected parser config: %+v", cfg.Parser)
	}
	if cfg.Parser.Model != "en_core_web_sm" {
		t.Errorf("Expected unset keys to keep defaults, got model %q", cfg.Parser.Model)
	}

	table, err := buildTable(cfg.Policy)
	if err != nil {
		t.Fatalf("buildTable failed: %v", err)
	}
	strict, _ := table.Lookup(policy.Strict)
	if !strict.AcceptsRoot(model.POSAux) {
		t.Errorf("Expected override to allow AUX roots, got %v", strict.RootTags)
	}
}

func TestBuildTable_Errors(t *testing.T) {
	if _, err := buildTable(model.PolicyConfig{RuleSet: "loose"}); err == nil {
		t.Error("Expected error for unknown rule set")
	}

	_, err := buildTable(model.PolicyConfig{
		Overrides: map[string]model.PolicyOverride{"strict": {RootTags: []string{"VB"}}},
	})
	if !errors.Is(err, policy.ErrInvalidPolicy) {
		t.Errorf("Expected ErrInvalidPolicy, got %v", err)
	}
}

func TestParseExpected(t *testing.T) {
	if v, err := parseExpected(""); err != nil || v != nil {
		t.Errorf("Expected nil for empty, got %v, %v", v, err)
	}
	if v, err := parseExpected("true"); err != nil || v == nil || !*v {
		t.Errorf("Expected true, got %v, %v", v, err)
	}
	if _, err := parseExpected("maybe"); err == nil {
		t.Error("Expected error for maybe")
	}
}

func sampleResult() *check.Result {
	return &check.Result{
		Query:          "She sleeps",
		Policy:         policy.Lenient,
		ValidityPolicy: policy.Lenient,
		Classification: model.ClassificationResult{
			Tokens: []model.AnnotatedToken{
				{Text: "She ", Label: "nsubj", Class: model.RoleSubject},
				{Text: "sleeps", Label: "VERB", Class: model.RoleRoot},
			},
			HasSubject: true,
			HasRoot:    true,
		},
		Valid: true,
	}
}

func TestPrintResult(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"plain", []string{"She sleeps\tlenient\tVALID\n"}},
		{"terminal", []string{"She[nsubj] sleeps[VERB]", "root: yes", "object: no", "lenient: VALID"}},
		{"html", []string{"<mark class=\"root\"", "sleeps"}},
		{"json", []string{`"valid": true`, `"segments"`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printResult(&buf, sampleResult(), tt.format, false); err != nil {
				t.Fatalf("printResult failed: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("Expected %q in output:\n%s", w, buf.String())
				}
			}
		})
	}

	if err := printResult(&bytes.Buffer{}, sampleResult(), "yaml", false); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestPrintPolicies(t *testing.T) {
	var buf bytes.Buffer
	printPolicies(&buf, policy.Canonical(), "balanced")

	out := buf.String()
	if !strings.Contains(out, "Rule set: canonical") {
		t.Errorf("Expected rule set name, got:\n%s", out)
	}
	if !strings.Contains(out, "* balanced") {
		t.Errorf("Expected default marker on balanced, got:\n%s", out)
	}
	if !strings.Contains(out, "subject && root && object") {
		t.Errorf("Expected strict law, got:\n%s", out)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, model.AgreementReport{Total: 3})
	if !strings.Contains(buf.String(), "n/a") {
		t.Errorf("Expected n/a without labels, got:\n%s", buf.String())
	}

	buf.Reset()
	printReport(&buf, model.AgreementReport{
		Total: 4, Labeled: 4, Agreements: 3, Overlap: 75,
		Confusion: model.Confusion{TruePositive: 2, TrueNegative: 1, FalseNegative: 1},
	})
	if !strings.Contains(buf.String(), "75.00% (3/4)") || !strings.Contains(buf.String(), "TP=2 FP=0 TN=1 FN=1") {
		t.Errorf("Unexpected report:\n%s", buf.String())
	}
}

func TestWriteRecords(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemoryStore()
	q, toks := record.Build("She sleeps", nil, true, "lenient", []model.Token{
		{Text: "She", Whitespace: " ", POS: model.POSPron, Dep: "nsubj"},
		{Text: "sleeps", POS: model.POSVerb, Dep: model.DepRoot},
	})
	_, _ = store.Append(ctx, q, toks)

	dir := t.TempDir()
	if err := writeRecords(ctx, store, dir); err != nil {
		t.Fatalf("writeRecords failed: %v", err)
	}

	queries, err := os.ReadFile(filepath.Join(dir, "queries.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(queries), "\n") != 2 {
		t.Errorf("Expected header and one row, got %q", queries)
	}

	tokens, err := os.ReadFile(filepath.Join(dir, "tokens.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(tokens), "\n") != 3 {
		t.Errorf("Expected header and two rows, got %q", tokens)
	}
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Parser.APIKey = "sk-secret"
	cfg.Records.DSN = "postgres://u:p@db/x"

	var buf bytes.Buffer
	if err := writeConfig(&buf, redact(cfg)); err != nil {
		t.Fatalf("writeConfig failed: %v", err)
	}
	if strings.Contains(buf.String(), "sk-secret") || strings.Contains(buf.String(), "u:p@db") {
		t.Errorf("Secrets leaked:\n%s", buf.String())
	}
	if cfg.Parser.APIKey != "sk-secret" {
		t.Error("redact must not modify its input")
	}
}

func TestWriteConfigTemplate_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeConfigTemplate(&buf, model.DefaultConfig()); err != nil {
		t.Fatalf("writeConfigTemplate failed: %v", err)
	}

	v := newTestViper(t)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(&buf); err != nil {
		t.Fatalf("template is not valid YAML: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Parser.Timeout != 30*time.Second || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Durations did not round trip: %v, %v", cfg.Parser.Timeout, cfg.Cache.TTL)
	}
}

func TestCheckCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/en_core_web_sm":
			_, _ = w.Write([]byte(`{"name":"en_core_web_sm"}`))
		case "/parse":
			_ = json.NewEncoder(w).Encode(map[string]any{"tokens": []map[string]string{
				{"text": "Eat", "whitespace": " ", "pos": "VERB", "dep": "ROOT"},
				{"text": "apples", "whitespace": "", "pos": "NOUN", "dep": "dobj"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("SENTCHECK_PARSER_BASE_URL", server.URL)

	tests := []struct {
		policy string
		want   string
	}{
		{"lenient", "Eat apples\tlenient\tVALID\n"},
		{"balanced", "Eat apples\tbalanced\tINVALID\n"},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"check", "Eat", "apples", "--format", "plain", "--policy", tt.policy})

		if err := Execute(context.Background()); err != nil {
			t.Fatalf("check %s failed: %v", tt.policy, err)
		}
		if out.String() != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, out.String())
		}
	}
}

func TestBatchCommand_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/en_core_web_sm":
			_, _ = w.Write([]byte(`{"name":"en_core_web_sm"}`))
		case "/parse":
			select {
			case <-time.After(100 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"tokens": []map[string]string{
				{"text": "Eat", "whitespace": " ", "pos": "VERB", "dep": "ROOT"},
				{"text": "apples", "whitespace": "", "pos": "NOUN", "dep": "dobj"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("SENTCHECK_PARSER_BASE_URL", server.URL)
	t.Setenv("SENTCHECK_CACHE_ENABLED", "false")

	dir := t.TempDir()
	input := filepath.Join(dir, "sentences.txt")
	var lines strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&lines, "Eat apples %d\n", i)
	}
	if err := os.WriteFile(input, []byte(lines.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{"batch", input, "--concurrency", "1", "--timeout", "250ms", "--output-dir", out})

	err := Execute(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(out, "queries.csv")); !os.IsNotExist(statErr) {
		t.Errorf("Expected no partial queries.csv, stat returned %v", statErr)
	}
}

func TestCheckTimeout(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{0, 30 * time.Second},
		{-time.Second, 30 * time.Second},
		{5 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := checkTimeout(model.ParserConfig{Timeout: tt.timeout}); got != tt.want {
			t.Errorf("checkTimeout(%v) = %v, want %v", tt.timeout, got, tt.want)
		}
	}
}

func TestGinMode(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, gin.DebugMode},
		{slog.LevelInfo, gin.ReleaseMode},
		{slog.LevelWarn, gin.ReleaseMode},
	}

	for _, tt := range tests {
		if got := ginMode(tt.level); got != tt.want {
			t.Errorf("ginMode(%v) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
