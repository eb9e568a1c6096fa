package jobcfg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gwpipe/internal/prior"
)

// ParseUpdates decodes the importance-sampling-updates inline dict into
// typed values, e.g. {'duration': 4.0, 'detectors': ['H1', 'L1']}.
func (d *DataGenerationSettings) ParseUpdates() (map[string]cty.Value, error) {
	return parsePyDict(d.ImportanceSamplingUpdates)
}

// ParseEnvironment decodes the environment-variables inline dict into
// typed values, e.g. {'OMP_NUM_THREADS': 1}.
func (s *SubmissionSettings) ParseEnvironment() (map[string]cty.Value, error) {
	return parsePyDict(s.EnvironmentVariables)
}

// EnvironmentStrings renders the environment-variables dict as sorted
// KEY=VALUE pairs, the form scheduler submit descriptions want.
func (s *SubmissionSettings) EnvironmentStrings() ([]string, error) {
	if s.EnvironmentVariables == "" {
		return nil, nil
	}
	dict, err := s.ParseEnvironment()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		val, err := formatScalar(dict[key])
		if err != nil {
			return nil, fmt.Errorf("environment variable '%s': %w", key, err)
		}
		out = append(out, key+"="+val)
	}
	return out, nil
}

func formatScalar(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("value must be a scalar, got None")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		if v.True() {
			return "1", nil
		}
		return "0", nil
	case cty.Number:
		return v.AsBigFloat().Text('g', -1), nil
	}
	return "", fmt.Errorf("value must be a scalar, got %s", v.Type().FriendlyName())
}

// ParsePriorDict decodes the prior-dict overrides into a prior dictionary.
// Entries look like {geocent_time: Uniform(minimum=-0.1, maximum=0.1)};
// the right-hand sides are constructor expressions, so entry splitting
// honors only top-level commas.
func (d *DataGenerationSettings) ParsePriorDict() (*prior.Dict, error) {
	s := strings.TrimSpace(d.PriorDict)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("prior-dict %q must be wrapped in braces", d.PriorDict)
	}

	dict := prior.NewDict()
	for _, entry := range splitTopLevel(strings.TrimSpace(s[1 : len(s)-1])) {
		name, expr, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("prior-dict entry %q is not of the form name: expression", strings.TrimSpace(entry))
		}
		name = strings.Trim(strings.TrimSpace(name), "'\"")
		dist, err := prior.ParseFor(name, strings.TrimSpace(expr))
		if err != nil {
			return nil, fmt.Errorf("prior-dict entry '%s': %w", name, err)
		}
		dict.Set(name, dist)
	}
	return dict, nil
}

// splitTopLevel splits comma-separated entries, ignoring commas nested
// inside parentheses or brackets.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// ParseChannelDict decodes a channel mapping of the form
// {H1:GWOSC, L1:GWOSC}. Detector names and channels are bare words.
func ParseChannelDict(raw string) (map[string]string, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("channel-dict %q must be wrapped in braces", raw)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])

	out := make(map[string]string)
	if s == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		det, channel, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("channel-dict entry %q is not of the form DET:CHANNEL", strings.TrimSpace(pair))
		}
		det = strings.TrimSpace(det)
		channel = strings.TrimSpace(channel)
		if det == "" || channel == "" {
			return nil, fmt.Errorf("channel-dict entry %q has an empty side", strings.TrimSpace(pair))
		}
		out[det] = channel
	}
	return out, nil
}

// pyParser scans a python-literal dict expression. The grammar matches what
// operators actually write in these documents: string/number/bool/None
// scalars and flat lists.
type pyParser struct {
	input string
	pos   int
}

func parsePyDict(expr string) (map[string]cty.Value, error) {
	p := &pyParser{input: strings.TrimSpace(expr)}
	dict, err := p.parseDict()
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", expr, err)
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("parsing %q: unexpected trailing input at offset %d", expr, p.pos)
	}
	return dict, nil
}

func (p *pyParser) parseDict() (map[string]cty.Value, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	out := make(map[string]cty.Value)
	p.skipSpace()
	if p.consume('}') {
		return out, nil
	}
	for {
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, fmt.Errorf("value for key '%s': %w", key, err)
		}
		out[key] = val

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// parseKey accepts a quoted string or a bare word.
func (p *pyParser) parseKey() (string, error) {
	p.skipSpace()
	if p.pos < len(p.input) && (p.input[p.pos] == '\'' || p.input[p.pos] == '"') {
		v, err := p.parseString(p.input[p.pos])
		if err != nil {
			return "", err
		}
		return v.AsString(), nil
	}
	return p.parseWord()
}

func (p *pyParser) parseWord() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", fmt.Errorf("expected key at offset %d", p.pos)
	}
	return p.input[start:p.pos], nil
}

func (p *pyParser) parseValue() (cty.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return cty.NilVal, fmt.Errorf("expected value at end of input")
	}

	switch c := p.input[p.pos]; {
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == '[':
		return p.parseList()
	case c == '-' || c == '+' || unicode.IsDigit(rune(c)):
		return p.parseNumber()
	default:
		word, err := p.parseWord()
		if err != nil {
			return cty.NilVal, err
		}
		switch word {
		case "True", "true":
			return cty.True, nil
		case "False", "false":
			return cty.False, nil
		case "None":
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return cty.NilVal, fmt.Errorf("unexpected bare word '%s'", word)
	}
}

func (p *pyParser) parseString(quote byte) (cty.Value, error) {
	p.pos++ // opening quote
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return cty.NilVal, fmt.Errorf("unterminated string starting at offset %d", start-1)
	}
	s := p.input[start:p.pos]
	p.pos++ // closing quote
	return cty.StringVal(s), nil
}

func (p *pyParser) parseNumber() (cty.Value, error) {
	start := p.pos
	if c := p.input[p.pos]; c == '-' || c == '+' {
		p.pos++
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if unicode.IsDigit(rune(c)) || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		if (c == '-' || c == '+') && (p.input[p.pos-1] == 'e' || p.input[p.pos-1] == 'E') {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return cty.NumberFloatVal(f), nil
}

func (p *pyParser) parseList() (cty.Value, error) {
	p.pos++ // opening bracket
	p.skipSpace()
	if p.consume(']') {
		return cty.EmptyTupleVal, nil
	}
	var vals []cty.Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return cty.NilVal, err
		}
		vals = append(vals, v)
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if err := p.expect(']'); err != nil {
			return cty.NilVal, err
		}
		return cty.TupleVal(vals), nil
	}
}

func (p *pyParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *pyParser) consume(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *pyParser) expect(c byte) error {
	if !p.consume(c) {
		return fmt.Errorf("expected '%c' at offset %d", c, p.pos)
	}
	return nil
}
