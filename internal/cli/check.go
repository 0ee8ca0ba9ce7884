package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/sentcheck/internal/check"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/ppiankov/sentcheck/internal/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultParserTimeout = 30 * time.Second

var (
	checkPolicy   string
	checkValidity string
	checkExpected string
	checkFormat   string
	noColor       bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <sentence>",
	Short: "Check a single sentence",
	Long: `Check parses one sentence, highlights its root, subject and object,
and prints whether it is acceptable under the chosen strictness level.

Example:
  sentcheck check "She sleeps."
  sentcheck check "Eat apples" --policy balanced
  sentcheck check "The big dog" --format html
  sentcheck check "She sleeps." --expected true`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkPolicy, "policy", "p", "", "strictness level: lenient, balanced, strict (default from config)")
	checkCmd.Flags().StringVar(&checkValidity, "validity-policy", "", "judge with another level's law (default: same as --policy)")
	checkCmd.Flags().StringVar(&checkExpected, "expected", "", "your own judgement (true|false), recorded for agreement reports")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "", "output format: terminal, plain, html, json")
	checkCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colours in terminal output")

	_ = viper.BindPFlag("output.format", checkCmd.Flags().Lookup("format"))
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	expected, err := parseExpected(checkExpected)
	if err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout(cfg.Parser))
	defer cancel()

	res, err := s.checker.Check(ctx, check.Request{
		Text:           strings.Join(args, " "),
		Policy:         checkPolicy,
		ValidityPolicy: checkValidity,
		Expected:       expected,
	})
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if _, err := check.Record(ctx, s.store, res); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	return printResult(cmd.OutOrStdout(), res, cfg.Output.Format, !noColor)
}

// printResult writes res in the requested format
func printResult(w io.Writer, res *check.Result, format string, color bool) error {
	tokens := res.Classification.Tokens

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*check.Result
			Segments []render.Segment `json:"segments"`
		}{res, render.Segments(tokens)})
	case "html":
		_, err := fmt.Fprintln(w, render.HTML(tokens))
		return err
	case "plain":
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\n", render.Plain(tokens), res.ValidityPolicy, verdictWord(res.Valid))
		return err
	case "", "terminal":
		_, err := fmt.Fprintf(w, "%s\n\n  root: %s  subject: %s  object: %s\n  %s: %s\n",
			render.Terminal(tokens, color),
			yesNo(res.Classification.HasRoot),
			yesNo(res.Classification.HasSubject),
			yesNo(res.Classification.HasObject),
			res.ValidityPolicy,
			verdictWord(res.Valid),
		)
		return err
	default:
		return fmt.Errorf("unknown output format: %s (supported: terminal, plain, html, json)", format)
	}
}

func parseExpected(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("--expected must be true or false, got %q", s)
	}
	return &b, nil
}

func verdictWord(valid bool) string {
	if valid {
		return "VALID"
	}
	return "INVALID"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// checkTimeout bounds one check; zero means the parsers' own 30s default
func checkTimeout(cfg model.ParserConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return defaultParserTimeout
	}
	return cfg.Timeout
}
