package repair

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type literalReplacement struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

type regexRewrite struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`

	re *regexp.Regexp
}

// rule is one deterministic rewrite. It fires when the error text matches its
// conditions; literal replacements run first, then regex rewrites.
type rule struct {
	Name         string               `yaml:"name"`
	ErrorAny     []string             `yaml:"error_any"`
	ErrorAll     []string             `yaml:"error_all"`
	CodeContains string               `yaml:"code_contains"`
	Replace      []literalReplacement `yaml:"replace"`
	Rewrite      []regexRewrite       `yaml:"rewrite"`
}

var rules = mustLoadRules()

func mustLoadRules() []rule {
	var doc struct {
		Rules []rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(rulesYAML, &doc); err != nil {
		panic(fmt.Sprintf("repair: parse rules.yaml: %v", err))
	}
	for i := range doc.Rules {
		for j := range doc.Rules[i].Rewrite {
			doc.Rules[i].Rewrite[j].re = regexp.MustCompile(doc.Rules[i].Rewrite[j].Pattern)
		}
	}
	return doc.Rules
}

func (r *rule) matches(code, errText string) bool {
	if r.CodeContains != "" && !strings.Contains(code, r.CodeContains) {
		return false
	}
	for _, s := range r.ErrorAll {
		if !strings.Contains(errText, s) {
			return false
		}
	}
	if len(r.ErrorAny) == 0 {
		return len(r.ErrorAll) > 0
	}
	for _, s := range r.ErrorAny {
		if strings.Contains(errText, s) {
			return true
		}
	}
	return false
}

func (r *rule) apply(code string) string {
	for _, rep := range r.Replace {
		code = strings.ReplaceAll(code, rep.Old, rep.New)
	}
	for i := range r.Rewrite {
		code = r.Rewrite[i].re.ReplaceAllString(code, r.Rewrite[i].Replacement)
	}
	return code
}

// applyRules runs every matching rewrite rule over the code. Returns the
// rewritten code and the names of rules that changed it.
func applyRules(code, errText string) (string, []string) {
	var fired []string
	for i := range rules {
		if !rules[i].matches(code, errText) {
			continue
		}
		if next := rules[i].apply(code); next != code {
			code = next
			fired = append(fired, rules[i].Name)
		}
	}
	return code, fired
}
