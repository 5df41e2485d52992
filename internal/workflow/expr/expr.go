// Package expr evaluates workflow condition expressions: the language used
// by `if:` keys and `${{ ... }}` interpolations. It supports literals,
// dotted context lookups, boolean and comparison operators, and the status
// check functions. Semantics follow the runner: string comparisons ignore
// case, and mixed-type comparisons coerce operands to numbers.
package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Context supplies the named values an expression can reference, e.g.
// {"github": map[string]any{"event_name": "push"}}. Lookups are
// case-insensitive, matching runner behavior.
type Context map[string]any

// Status keys recognized by the success()/failure()/cancelled() functions.
// The caller seeds Context["status"] with one of these; success is assumed
// when absent.
const (
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusCancelled = "cancelled"
)

// Expr is a parsed expression ready for repeated evaluation.
type Expr struct {
	root   node
	source string
}

// Source returns the original expression text.
func (e *Expr) Source() string {
	return e.source
}

// Parse compiles an expression, stripping an optional ${{ }} wrapper.
func Parse(source string) (*Expr, error) {
	trimmed := strings.TrimSpace(source)
	trimmed = strings.TrimPrefix(trimmed, "${{")
	trimmed = strings.TrimSuffix(trimmed, "}}")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return nil, fmt.Errorf("expr: expression is empty")
	}
	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("expr: unexpected %q", p.peek().text)
	}
	return &Expr{root: root, source: source}, nil
}

// Eval evaluates the expression against ctx.
func (e *Expr) Eval(ctx Context) (any, error) {
	return e.root.eval(ctx)
}

// Evaluate parses and evaluates in one step.
func Evaluate(source string, ctx Context) (any, error) {
	parsed, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return parsed.Eval(ctx)
}

// EvaluateBool evaluates and applies runner truthiness: false, 0, '', and
// null are falsy, everything else is truthy.
func EvaluateBool(source string, ctx Context) (bool, error) {
	value, err := Evaluate(source, ctx)
	if err != nil {
		return false, err
	}
	return Truthy(value), nil
}

// Truthy applies the runner's truthiness rules to a value.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	default:
		return true
	}
}

// node is one AST vertex.
type node interface {
	eval(ctx Context) (any, error)
}

type literalNode struct {
	value any
}

func (n literalNode) eval(Context) (any, error) {
	return n.value, nil
}

type lookupNode struct {
	path []string
}

func (n lookupNode) eval(ctx Context) (any, error) {
	var current any = map[string]any(ctx)
	for _, segment := range n.path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, nil
		}
		current = lookupFold(m, segment)
	}
	return current, nil
}

func lookupFold(m map[string]any, key string) any {
	if value, ok := m[key]; ok {
		return value
	}
	for k, value := range m {
		if strings.EqualFold(k, key) {
			return value
		}
	}
	return nil
}

type notNode struct {
	operand node
}

func (n notNode) eval(ctx Context) (any, error) {
	value, err := n.operand.eval(ctx)
	if err != nil {
		return nil, err
	}
	return !Truthy(value), nil
}

type binaryNode struct {
	op          string
	left, right node
}

func (n binaryNode) eval(ctx Context) (any, error) {
	left, err := n.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	// && and || short-circuit and return an operand, not a bool.
	switch n.op {
	case "&&":
		if !Truthy(left) {
			return left, nil
		}
		return n.right.eval(ctx)
	case "||":
		if Truthy(left) {
			return left, nil
		}
		return n.right.eval(ctx)
	}
	right, err := n.right.eval(ctx)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(n.op, left, right), nil
	default:
		return nil, fmt.Errorf("expr: unknown operator %q", n.op)
	}
}

type callNode struct {
	name string
	args []node
}

func (n callNode) eval(ctx Context) (any, error) {
	args := make([]any, len(n.args))
	for i, arg := range n.args {
		value, err := arg.eval(ctx)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}
	switch strings.ToLower(n.name) {
	case "contains":
		if err := arity(n.name, args, 2); err != nil {
			return nil, err
		}
		if items, ok := args[0].([]any); ok {
			for _, item := range items {
				if looseEqual(item, args[1]) {
					return true, nil
				}
			}
			return false, nil
		}
		return strings.Contains(foldString(args[0]), foldString(args[1])), nil
	case "startswith":
		if err := arity(n.name, args, 2); err != nil {
			return nil, err
		}
		return strings.HasPrefix(foldString(args[0]), foldString(args[1])), nil
	case "endswith":
		if err := arity(n.name, args, 2); err != nil {
			return nil, err
		}
		return strings.HasSuffix(foldString(args[0]), foldString(args[1])), nil
	case "always":
		return true, nil
	case "success":
		return statusOf(ctx) == StatusSuccess, nil
	case "failure":
		return statusOf(ctx) == StatusFailure, nil
	case "cancelled":
		return statusOf(ctx) == StatusCancelled, nil
	default:
		return nil, fmt.Errorf("expr: unknown function %q", n.name)
	}
}

func arity(name string, args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("expr: %s expects %d arguments, got %d", name, want, len(args))
	}
	return nil
}

func statusOf(ctx Context) string {
	status, _ := ctx["status"].(string)
	if status == "" {
		return StatusSuccess
	}
	return strings.ToLower(status)
}

func foldString(value any) string {
	return strings.ToLower(toString(value))
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// looseEqual implements the runner's equality: same-kind strings compare
// case-insensitively, otherwise both sides coerce to numbers. NaN never
// equals anything.
func looseEqual(left, right any) bool {
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			return strings.EqualFold(ls, rs)
		}
	}
	if left == nil && right == nil {
		return true
	}
	ln := toNumber(left)
	rn := toNumber(right)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return false
	}
	return ln == rn
}

func compareOrdered(op string, left, right any) bool {
	ln := toNumber(left)
	rn := toNumber(right)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return false
	}
	switch op {
	case "<":
		return ln < rn
	case "<=":
		return ln <= rn
	case ">":
		return ln > rn
	case ">=":
		return ln >= rn
	default:
		return false
	}
}

func toNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}
