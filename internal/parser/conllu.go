package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/sentcheck/internal/model"
)

// CoNLL-U column indexes
const (
	conlluID = iota
	conlluForm
	conlluLemma
	conlluUPOS
	conlluXPOS
	conlluFeats
	conlluHead
	conlluDeprel
	conlluDeps
	conlluMisc
	conlluColumns
)

// ConllUParser answers from a pre-parsed CoNLL-U treebank keyed by "# text =" comments
type ConllUParser struct {
	path      string
	sentences map[string][]model.Token
}

// NewConllUParser loads every sentence from path
func NewConllUParser(path string) (*ConllUParser, error) {
	if path == "" {
		return nil, fmt.Errorf("conllu parser requires conllu_path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParserUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	sentences, err := ReadConllU(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &ConllUParser{path: path, sentences: sentences}, nil
}

func (p *ConllUParser) Name() string {
	return "conllu"
}

// Len returns the number of loaded sentences
func (p *ConllUParser) Len() int {
	return len(p.sentences)
}

// Parse looks text up by its exact trimmed form
func (p *ConllUParser) Parse(_ context.Context, text string) ([]model.Token, error) {
	key := strings.TrimSpace(text)
	if key == "" {
		return nil, nil
	}

	tokens, ok := p.sentences[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSentenceNotFound, key)
	}

	out := make([]model.Token, len(tokens))
	copy(out, tokens)
	return out, nil
}

// Probe fails when the treebank held no usable sentences
func (p *ConllUParser) Probe(_ context.Context) error {
	if len(p.sentences) == 0 {
		return fmt.Errorf("no sentences with a text comment in %s", p.path)
	}
	return nil
}

// ReadConllU parses CoNLL-U sentences into tokens keyed by sentence text.
// Sentences without a "# text =" comment are skipped. Multiword ranges
// contribute their surface form; empty nodes are ignored.
func ReadConllU(r io.Reader) (map[string][]model.Token, error) {
	sentences := make(map[string][]model.Token)

	var (
		text    string
		raw     []rawToken
		rangeTo string // last word ID covered by the current multiword token
		lineNo  int
	)

	flush := func() error {
		defer func() {
			text, raw, rangeTo = "", nil, ""
		}()
		if text == "" || len(raw) == 0 {
			return nil
		}
		raw[len(raw)-1].Whitespace = ""
		tokens, err := normalize(raw)
		if err != nil {
			return fmt.Errorf("sentence %q: %w", text, err)
		}
		sentences[text] = tokens
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.TrimSpace(line) == "":
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		case strings.HasPrefix(line, "#"):
			if value, ok := commentValue(line, "text"); ok {
				text = value
			}
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) != conlluColumns {
			return nil, fmt.Errorf("%w: line %d has %d columns, want %d", ErrMalformedParse, lineNo, len(cols), conlluColumns)
		}

		id := cols[conlluID]
		switch {
		case strings.Contains(id, "."):
			continue
		case strings.Contains(id, "-"):
			// Multiword token: its surface form replaces the words it spans
			bounds := strings.SplitN(id, "-", 2)
			rangeTo = bounds[1]
			raw = append(raw, rawToken{
				Text:       cols[conlluForm],
				Whitespace: spaceAfter(cols[conlluMisc]),
			})
			continue
		}

		if rangeTo != "" {
			// First word of the range carries the syntactic head role
			mw := &raw[len(raw)-1]
			if mw.POS == "" {
				mw.POS = cols[conlluUPOS]
				mw.Dep = cols[conlluDeprel]
			} else if strings.EqualFold(cols[conlluDeprel], model.DepRoot) {
				mw.POS = cols[conlluUPOS]
				mw.Dep = cols[conlluDeprel]
			}
			if id == rangeTo {
				rangeTo = ""
			}
			continue
		}

		raw = append(raw, rawToken{
			Text:       cols[conlluForm],
			Whitespace: spaceAfter(cols[conlluMisc]),
			POS:        cols[conlluUPOS],
			Dep:        cols[conlluDeprel],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return sentences, nil
}

func commentValue(line, key string) (string, bool) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	name, value, ok := strings.Cut(body, "=")
	if !ok || strings.TrimSpace(name) != key {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func spaceAfter(misc string) string {
	if misc == "_" {
		return " "
	}
	for _, field := range strings.Split(misc, "|") {
		if field == "SpaceAfter=No" {
			return ""
		}
	}
	return " "
}
