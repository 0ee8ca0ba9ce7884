package model

import "strings"

// POS is a coarse universal part-of-speech tag
type POS string

const (
	POSAdj   POS = "ADJ"   // adjective
	POSAdp   POS = "ADP"   // adposition
	POSAdv   POS = "ADV"   // adverb
	POSAux   POS = "AUX"   // auxiliary
	POSCConj POS = "CCONJ" // coordinating conjunction
	POSDet   POS = "DET"   // determiner
	POSIntj  POS = "INTJ"  // interjection
	POSNoun  POS = "NOUN"  // noun
	POSNum   POS = "NUM"   // numeral
	POSPart  POS = "PART"  // particle
	POSPron  POS = "PRON"  // pronoun
	POSPropn POS = "PROPN" // proper noun
	POSPunct POS = "PUNCT" // punctuation
	POSSConj POS = "SCONJ" // subordinating conjunction
	POSSym   POS = "SYM"   // symbol
	POSVerb  POS = "VERB"  // verb
	POSX     POS = "X"     // other
	POSSpace POS = "SPACE" // whitespace token (spaCy only)
)

var universalTags = map[POS]bool{
	POSAdj: true, POSAdp: true, POSAdv: true, POSAux: true, POSCConj: true,
	POSDet: true, POSIntj: true, POSNoun: true, POSNum: true, POSPart: true,
	POSPron: true, POSPropn: true, POSPunct: true, POSSConj: true, POSSym: true,
	POSVerb: true, POSX: true, POSSpace: true,
}

// ParsePOS normalizes a tag string and reports whether it is a known tag
func ParsePOS(s string) (POS, bool) {
	p := POS(strings.ToUpper(strings.TrimSpace(s)))
	return p, universalTags[p]
}

// Valid reports whether p belongs to the universal tag set
func (p POS) Valid() bool {
	return universalTags[p]
}

// DepRoot is the dependency label of the sentence head
const DepRoot = "ROOT"

// Token is a single parsed word as produced by the external parser
type Token struct {
	Text       string `json:"text"`                 // Surface form
	Whitespace string `json:"whitespace,omitempty"` // Trailing whitespace in the source text
	POS        POS    `json:"pos"`                  // Coarse part-of-speech tag
	Dep        string `json:"dep"`                  // Dependency relation label (ROOT, nsubj, dobj, ...)
}

// TextWithWhitespace returns the token text followed by its trailing whitespace
func (t Token) TextWithWhitespace() string {
	return t.Text + t.Whitespace
}

// JoinTokens reconstructs the source text of a token sequence
func JoinTokens(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.TextWithWhitespace())
	}
	return b.String()
}
