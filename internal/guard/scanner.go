// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package guard

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Stage identifies which side of the model a text is on.
type Stage string

const (
	// StageInput is text a caller sends that ends up in a prompt.
	StageInput Stage = "input"
	// StageOutput is text a model produced.
	StageOutput Stage = "output"
)

func (s Stage) Valid() bool {
	return s == StageInput || s == StageOutput
}

// Severity indicates how critical a detection is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

func (s Severity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium
}

// Rule is a named pattern evaluated at one stage.
type Rule struct {
	Name     string
	Stage    Stage
	Pattern  *regexp.Regexp
	Severity Severity
}

// Match is one rule hit. Location and Length are byte offsets into
// Result.Content.
type Match struct {
	Rule     string
	Location int
	Length   int
	Severity Severity
}

// Result is the outcome of a scan. Content is the normalized text the
// match offsets refer to.
type Result struct {
	Threat  bool
	Matches []Match
	Content string
}

// Rules returns the distinct rule names matched, in match order.
func (r Result) Rules() []string {
	var names []string
	for _, m := range r.Matches {
		if !slices.Contains(names, m.Rule) {
			names = append(names, m.Rule)
		}
	}
	return names
}

// DefaultMaxContentLength bounds the text a Scanner evaluates.
const DefaultMaxContentLength = 1 << 20

// Scanner evaluates regex rules against normalized text.
type Scanner struct {
	rules            []Rule
	maxContentLength int
}

// NewScanner validates rules and returns a Scanner over them.
func NewScanner(rules []Rule) (*Scanner, error) {
	for i, r := range rules {
		switch {
		case r.Name == "":
			return nil, shoperr.Errorf(shoperr.CodeGuardRuleInvalid, "rule %d has empty name", i)
		case r.Pattern == nil:
			return nil, shoperr.Errorf(shoperr.CodeGuardRuleInvalid, "rule %d (%s) has nil pattern", i, r.Name)
		case !r.Stage.Valid():
			return nil, shoperr.Errorf(shoperr.CodeGuardRuleInvalid, "rule %d (%s) has invalid stage %q", i, r.Name, r.Stage)
		case !r.Severity.Valid():
			return nil, shoperr.Errorf(shoperr.CodeGuardRuleInvalid, "rule %d (%s) has invalid severity %q", i, r.Name, r.Severity)
		}
	}
	return &Scanner{rules: rules, maxContentLength: DefaultMaxContentLength}, nil
}

// invisible strips zero-width and other invisible characters used to
// split trigger words.
var invisible = strings.NewReplacer(
	"\u200b", "", // zero-width space
	"\u200c", "", // zero-width non-joiner
	"\u200d", "", // zero-width joiner
	"\ufeff", "", // BOM
	"\u00ad", "", // soft hyphen
	"\u034f", "", // combining grapheme joiner
	"\u061c", "", // Arabic letter mark
	"\u180e", "", // Mongolian vowel separator
	"\u2060", "", // word joiner
	"\u2061", "",
	"\u2062", "",
	"\u2063", "",
	"\u2064", "",
)

// Normalize strips invisible characters and applies NFKC.
func Normalize(s string) string {
	return norm.NFKC.String(invisible.Replace(s))
}

// Scan evaluates the rules registered for stage against content.
func (s *Scanner) Scan(content string, stage Stage) (Result, error) {
	if !stage.Valid() {
		return Result{}, shoperr.Errorf(shoperr.CodeGuardScanFailure, "invalid scan stage %q", stage)
	}

	content = Normalize(content)
	if len(content) > s.maxContentLength {
		return Result{Threat: true, Content: content, Matches: []Match{{
			Rule:     "content_too_large",
			Length:   len(content),
			Severity: SeverityHigh,
		}}}, nil
	}

	res := Result{Content: content}
	for _, rule := range s.rules {
		if rule.Stage != stage {
			continue
		}
		for _, loc := range rule.Pattern.FindAllStringIndex(content, -1) {
			res.Threat = true
			res.Matches = append(res.Matches, Match{
				Rule:     rule.Name,
				Location: loc[0],
				Length:   loc[1] - loc[0],
				Severity: rule.Severity,
			})
		}
	}
	return res, nil
}

// DefaultRules returns the built-in input and output rules.
func DefaultRules() []Rule {
	return slices.Concat(InputRules(), OutputRules())
}

// InputRules detects attempts to steer the model from inside a store
// description or a question.
func InputRules() []Rule {
	return []Rule{
		{
			Name:     "instruction_override",
			Pattern:  regexp.MustCompile(`(?i)(ignore|disregard|override|forget|do\s+not\s+follow)\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
			Stage:    StageInput,
			Severity: SeverityHigh,
		},
		{
			Name:     "instruction_override_ko",
			Pattern:  regexp.MustCompile(`(이전|위의?|앞의?)\s*(의\s*)?(모든\s*)?(지시|지침|명령|규칙|프롬프트)(사항)?\s*(을|를|은|는)?\s*(모두\s*)?(무시|잊)`),
			Stage:    StageInput,
			Severity: SeverityHigh,
		},
		{
			Name:     "role_confusion",
			Pattern:  regexp.MustCompile(`(?i)you\s+are\s+now\s+\w+[,.]?\s*(do|ignore|forget|disregard)`),
			Stage:    StageInput,
			Severity: SeverityHigh,
		},
		{
			Name:     "prompt_extraction_ko",
			Pattern:  regexp.MustCompile(`시스템\s*프롬프트\s*(을|를)?\s*(보여|알려|출력|공개)`),
			Stage:    StageInput,
			Severity: SeverityMedium,
		},
		{
			Name:     "system_block_injection",
			Pattern:  regexp.MustCompile(`(?i)(?:<\|?system\|?>|\[system\]|<<SYS>>|` + "```" + `system\b)`),
			Stage:    StageInput,
			Severity: SeverityHigh,
		},
	}
}

// OutputRules detects credentials a model might echo back from the
// indexed text.
func OutputRules() []Rule {
	return []Rule{
		{Name: "aws_access_key", Pattern: regexp.MustCompile(`AKIA[0-9A-Z]{16}`), Stage: StageOutput, Severity: SeverityHigh},
		{Name: "openai_api_key", Pattern: regexp.MustCompile(`sk-proj-[A-Za-z0-9_-]{20,}`), Stage: StageOutput, Severity: SeverityHigh},
		{Name: "anthropic_api_key", Pattern: regexp.MustCompile(`sk-ant-api\d{2}-[A-Za-z0-9_-]{20,}`), Stage: StageOutput, Severity: SeverityHigh},
		{Name: "google_api_key", Pattern: regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), Stage: StageOutput, Severity: SeverityHigh},
		{Name: "github_pat", Pattern: regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`), Stage: StageOutput, Severity: SeverityHigh},
		{Name: "bearer_token", Pattern: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.]{20,}`), Stage: StageOutput, Severity: SeverityHigh},
		{Name: "pem_private_key", Pattern: regexp.MustCompile(`-----BEGIN\s+(RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`), Stage: StageOutput, Severity: SeverityHigh},
		{Name: "keyring_uri", Pattern: regexp.MustCompile(`keyring://[^\s]+`), Stage: StageOutput, Severity: SeverityMedium},
	}
}
