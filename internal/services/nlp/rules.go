package nlp

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Entity kinds produced by RuleClassifier
const (
	KindEmail      = "email"
	KindURL        = "url"
	KindHashtag    = "hashtag"
	KindProperNoun = "proper_noun"
)

// ctxCheckInterval is how many words the proper-noun scan reads between cancellation checks
const ctxCheckInterval = 512

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"]+`)
	hashtagPattern = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_]+)`)
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+|-[\p{L}\p{N}]+)*`)
)

var defaultStopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "so", "of", "in", "on", "at", "to", "for",
	"by", "with", "from", "as", "is", "are", "was", "were", "be", "been", "it", "its", "this", "that",
	"these", "those", "there", "here", "we", "you", "he", "she", "they", "i", "me", "my", "our", "your",
	"his", "her", "their", "what", "when", "where", "why", "how", "who", "which", "all", "any", "some",
	"no", "not", "yes", "do", "does", "did", "can", "could", "will", "would", "should", "may", "might",
	"must", "also", "just", "more", "most", "new", "now", "one", "read", "share", "click", "sign", "log",
	"login", "subscribe", "home", "menu", "search", "about", "contact", "privacy", "terms", "cookie",
	"cookies", "copyright", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// Recognizer finds entities the gazetteer does not list. Spans must be sorted by Start.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// RuleClassifier combines emails, URLs, hashtags and gazetteer matches with an optional
// statistical recognizer, then fills the gaps with capitalised-word runs.
// It holds no mutable state after construction.
type RuleClassifier struct {
	gazetteer  *Gazetteer
	entries    []gazetteerEntry
	stopwords  map[string]struct{}
	recognizer Recognizer
	forceNER   bool
}

// RuleOption configures a RuleClassifier
type RuleOption func(*RuleClassifier)

// WithGazetteer replaces the built-in gazetteer
func WithGazetteer(g *Gazetteer) RuleOption {
	return func(c *RuleClassifier) {
		c.gazetteer = g
	}
}

// WithRecognizer runs r after the gazetteer and before the capitalisation pass
func WithRecognizer(r Recognizer) RuleOption {
	return func(c *RuleClassifier) {
		c.recognizer = r
	}
}

// WithForceNER controls whether single capitalised words are reported
func WithForceNER(force bool) RuleOption {
	return func(c *RuleClassifier) {
		c.forceNER = force
	}
}

// WithStopwords adds words that never start, end or form a proper-noun span
func WithStopwords(words []string) RuleOption {
	return func(c *RuleClassifier) {
		for _, w := range words {
			c.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// NewRuleClassifier creates a classifier with forced NER and the default gazetteer
func NewRuleClassifier(opts ...RuleOption) *RuleClassifier {
	c := &RuleClassifier{
		gazetteer: DefaultGazetteer(),
		stopwords: make(map[string]struct{}, len(defaultStopwords)),
		forceNER:  true,
	}
	for _, w := range defaultStopwords {
		c.stopwords[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = c.gazetteer.compile()
	return c
}

type span struct{ start, end int }

// collector keeps accepted entities sorted by Start with no two spans overlapping.
// Earlier passes win over later ones.
type collector struct {
	entities []Entity
}

// merge adds a pass of candidates sorted by Start, dropping any that overlap an
// accepted entity or an earlier candidate of the same pass.
func (c *collector) merge(cands []Entity) {
	if len(cands) == 0 {
		return
	}
	merged := make([]Entity, 0, len(c.entities)+len(cands))
	i := 0
	for _, e := range cands {
		for i < len(c.entities) && c.entities[i].Start < e.Start {
			merged = append(merged, c.entities[i])
			i++
		}
		if n := len(merged); n > 0 && merged[n-1].End > e.Start {
			continue
		}
		if i < len(c.entities) && c.entities[i].Start < e.End {
			continue
		}
		merged = append(merged, e)
	}
	c.entities = append(merged, c.entities[i:]...)
}

// Process recognises entities in text. Entities are returned in text order and never nil.
func (c *RuleClassifier) Process(ctx context.Context, locale, text string) (*Result, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	col := &collector{}
	col.merge(matchEntities(emailPattern, text, KindEmail, 0.95))
	col.merge(matchEntities(urlPattern, text, KindURL, 0.95))

	var hashtags []Entity
	for _, m := range hashtagPattern.FindAllStringSubmatchIndex(text, -1) {
		hashtags = append(hashtags, Entity{Entity: KindHashtag, Text: text[m[2]:m[3]], Start: m[2] - 1, End: m[3], Accuracy: 1})
	}
	col.merge(hashtags)

	for _, g := range c.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var found []Entity
		for _, m := range g.pattern.FindAllStringSubmatchIndex(text, -1) {
			found = append(found, Entity{Entity: g.kind, Option: g.option, Text: text[m[2]:m[3]], Start: m[2], End: m[3], Accuracy: 1})
		}
		col.merge(found)
	}

	if c.recognizer != nil {
		found, err := c.recognizer.Recognize(ctx, text)
		if err != nil {
			return nil, err
		}
		col.merge(found)
	}

	nouns, err := c.properNouns(ctx, text)
	if err != nil {
		return nil, err
	}
	col.merge(nouns)

	if col.entities == nil {
		col.entities = []Entity{}
	}
	return &Result{Locale: LocaleEnglish, Entities: col.entities}, nil
}

func matchEntities(pattern *regexp.Regexp, text, kind string, accuracy float64) []Entity {
	var out []Entity
	for _, m := range pattern.FindAllStringIndex(text, -1) {
		out = append(out, Entity{Entity: kind, Start: m[0], End: m[1], Accuracy: accuracy})
	}
	return out
}

// properNouns finds runs of capitalised words joined by single spaces
func (c *RuleClassifier) properNouns(ctx context.Context, text string) ([]Entity, error) {
	var out []Entity
	var run []span

	flush := func() {
		defer func() { run = run[:0] }()
		for len(run) > 0 && c.isStopword(text[run[0].start:run[0].end]) {
			run = run[1:]
		}
		for len(run) > 0 && c.isStopword(text[run[len(run)-1].start:run[len(run)-1].end]) {
			run = run[:len(run)-1]
		}
		switch {
		case len(run) == 0:
			return
		case len(run) > 1:
			out = append(out, Entity{
				Entity:   KindProperNoun,
				Text:     text[run[0].start:run[len(run)-1].end],
				Start:    run[0].start,
				End:      run[len(run)-1].end,
				Accuracy: 0.8,
			})
		default:
			word := text[run[0].start:run[0].end]
			if !c.forceNER || utf8.RuneCountInString(word) < 2 {
				return
			}
			if atSentenceStart(text, run[0].start) && !isAcronym(word) {
				return
			}
			out = append(out, Entity{Entity: KindProperNoun, Text: word, Start: run[0].start, End: run[0].end, Accuracy: 0.5})
		}
	}

	for i, w := range wordPattern.FindAllStringIndex(text, -1) {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		word, possessive := trimPossessive(text[w[0]:w[1]])
		if !isCapitalized(word) {
			flush()
			continue
		}
		if len(run) > 0 && text[run[len(run)-1].end:w[0]] != " " {
			flush()
		}
		run = append(run, span{w[0], w[0] + len(word)})
		if possessive {
			flush()
		}
	}
	flush()
	return out, nil
}

func (c *RuleClassifier) isStopword(word string) bool {
	_, ok := c.stopwords[strings.ToLower(word)]
	return ok
}

func trimPossessive(word string) (string, bool) {
	for _, suffix := range []string{"'s", "’s"} {
		if strings.HasSuffix(word, suffix) && len(word) > len(suffix) {
			return strings.TrimSuffix(word, suffix), true
		}
	}
	return word, false
}

func isCapitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

func isAcronym(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}

func atSentenceStart(text string, i int) bool {
	before := strings.TrimRightFunc(text[:i], unicode.IsSpace)
	if before == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(before)
	return strings.ContainsRune(`.!?:;"“(`, r)
}
