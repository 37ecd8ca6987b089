package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/vaultline/session-engine/internal/domain/recovery"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// amountPattern matches comma-grouped or plain decimals, e.g. "1,000.00" or "250".
var amountPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

// ErrorClassifierOptions groups dependencies for ErrorClassifier.
type ErrorClassifierOptions struct {
	Rules     *recovery.Rules   // Optional: defaults to recovery.DefaultRules()
	Evaluator JMESPathEvaluator // Optional: defaults to go-jmespath
}

// ErrorClassifier maps transaction failures to recovery kinds with an ordered rule
// table: insufficient balance first, then invalid credential, then generic.
// Classification is pure and never fails.
type ErrorClassifier struct {
	rules recovery.Rules
	jems  JMESPathEvaluator

	current  []string
	required []string
	attempts []string
	txIDs    []string
}

// NewErrorClassifier constructs an ErrorClassifier. Every structured field in the
// rule table is a JMESPath expression evaluated against the failure payload and
// against its nested "data" object; invalid expressions are rejected here.
func NewErrorClassifier(opts ErrorClassifierOptions) (*ErrorClassifier, error) {
	rules := recovery.DefaultRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	c := &ErrorClassifier{rules: rules, jems: jems}

	var err error
	if c.current, err = c.expand(rules.BalanceFields.Current); err != nil {
		return nil, err
	}
	if c.required, err = c.expand(rules.BalanceFields.Required); err != nil {
		return nil, err
	}
	if c.attempts, err = c.expand(rules.AttemptsFields); err != nil {
		return nil, err
	}
	if c.txIDs, err = c.expand(rules.TransactionIDFields); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultErrorClassifier returns a classifier over the built-in rule table.
func DefaultErrorClassifier() *ErrorClassifier {
	c, err := NewErrorClassifier(ErrorClassifierOptions{})
	if err != nil {
		panic(fmt.Sprintf("default classifier rules: %v", err))
	}
	return c
}

func (c *ErrorClassifier) expand(fields []string) ([]string, error) {
	out := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		for _, expr := range []string{f, "data." + f} {
			if err := c.jems.Validate(expr); err != nil {
				return nil, fmt.Errorf("invalid field expression %q: %w", expr, err)
			}
			out = append(out, expr)
		}
	}
	return out, nil
}

// Classify maps err to a ClassifiedError.
func (c *ErrorClassifier) Classify(err error) recovery.ClassifiedError {
	if err == nil {
		return recovery.ClassifiedError{Kind: recovery.KindGeneric, Message: recovery.DefaultGenericMessage}
	}

	in := failureOf(err)
	msg := strings.ToLower(in.Message)
	codes := codeTexts(in)

	out := recovery.ClassifiedError{
		Message:       in.Message,
		Code:          in.AnyCode(),
		TransactionID: c.firstString(in.Data, c.txIDs),
	}

	switch {
	case c.isInsufficientBalance(msg, codes, in.Data):
		out.Kind = recovery.KindInsufficientBalance
		out.CurrentBalance = c.firstNumber(in.Data, c.current)
		out.RequiredAmount = c.firstNumber(in.Data, c.required)
		if out.CurrentBalance == nil && out.RequiredAmount == nil {
			out.CurrentBalance, out.RequiredAmount = amountsFromText(in.Message)
		}
	case c.isInvalidCredential(msg, codes):
		out.Kind = recovery.KindInvalidCredential
		if n := c.firstNumber(in.Data, c.attempts); n != nil {
			attempts := int(math.Round(*n))
			out.AttemptsRemaining = &attempts
		}
	default:
		out.Kind = recovery.KindGeneric
		if strings.TrimSpace(out.Message) == "" {
			out.Message = recovery.DefaultGenericMessage
		}
	}
	return out
}

func (c *ErrorClassifier) isInsufficientBalance(msg string, codes []string, data map[string]any) bool {
	if containsAny(msg, c.rules.BalanceKeywords) {
		return true
	}
	for _, code := range codes {
		for _, want := range c.rules.BalanceCodes {
			if code == strings.ToLower(want) {
				return true
			}
		}
	}
	return c.anyPresent(data, c.current) || c.anyPresent(data, c.required)
}

func (c *ErrorClassifier) isInvalidCredential(msg string, codes []string) bool {
	if containsAny(msg, c.rules.CredentialKeywords) {
		return true
	}
	for _, code := range codes {
		if containsAny(code, c.rules.CredentialKeywords) {
			return true
		}
	}
	return false
}

func (c *ErrorClassifier) lookup(data map[string]any, exprs []string) []any {
	if len(data) == 0 {
		return nil
	}
	var out []any
	for _, expr := range exprs {
		v, err := c.jems.Evaluate(expr, data)
		if err != nil || v == nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (c *ErrorClassifier) anyPresent(data map[string]any, exprs []string) bool {
	return len(c.lookup(data, exprs)) > 0
}

func (c *ErrorClassifier) firstNumber(data map[string]any, exprs []string) *float64 {
	for _, v := range c.lookup(data, exprs) {
		if n, ok := toNumber(v); ok {
			return &n
		}
	}
	return nil
}

func (c *ErrorClassifier) firstString(data map[string]any, exprs []string) string {
	for _, v := range c.lookup(data, exprs) {
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64, int, int64, json.Number:
			return fmt.Sprint(s)
		}
	}
	return ""
}

// ExtractAmounts returns every decimal amount in text, in order of appearance.
// Grouping commas are dropped: "1,000.00" yields 1000.
func ExtractAmounts(text string) []float64 {
	matches := amountPattern.FindAllString(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// amountsFromText reads balance figures out of free text. Two or more numbers are
// taken as (current, required). A single number is required when the text talks
// about what is required or needed, otherwise current when it mentions a balance.
func amountsFromText(text string) (current, required *float64) {
	amounts := ExtractAmounts(text)
	switch {
	case len(amounts) >= 2:
		return &amounts[0], &amounts[1]
	case len(amounts) == 1:
		lower := strings.ToLower(text)
		if strings.Contains(lower, "required") || strings.Contains(lower, "need") {
			return nil, &amounts[0]
		}
		if strings.Contains(lower, "balance") || strings.Contains(lower, "available") {
			return &amounts[0], nil
		}
	}
	return nil, nil
}

func failureOf(err error) recovery.Failure {
	var f *recovery.Failure
	if errors.As(err, &f) && f != nil {
		return *f
	}
	return recovery.Failure{Message: err.Error()}
}

func codeTexts(f recovery.Failure) []string {
	var out []string
	for _, c := range []string{f.Code, f.ErrorCode} {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	if f.Status != 0 {
		out = append(out, strconv.Itoa(f.Status))
	}
	return out
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if n != "" && strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
