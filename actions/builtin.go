package actions

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/rickchristie/agentloops"
)

// Names of the built-in demonstration actions.
const (
	NameCalculate        = "calculate"
	NameAverageDogWeight = "average_dog_weight"
)

var (
	// ErrInvalidExpression is returned by the calculate action for input that is not a plain
	// arithmetic expression.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrDivisionByZero is returned by the calculate action.
	ErrDivisionByZero = errors.New("division by zero")
)

// Calculate returns the "calculate" action. It evaluates an arithmetic expression of numeric
// literals, parentheses, unary +/-, and the binary operators + - * / %. Division is exact, so
// "4 * 7 / 3" yields 9.333333333333334 rather than 9.
func Calculate() agentloops.Action {
	return agentloops.NewActionFunc(NameCalculate, func(_ context.Context, argument string) (string, error) {
		return Evaluate(argument)
	}).WithDescription("e.g. calculate: 4 * 7 / 3\n" +
		"Runs an arithmetic calculation and returns the number. Division is exact.")
}

// Evaluate evaluates an arithmetic expression and formats the result. Integer results have no
// decimal point.
func Evaluate(expression string) (string, error) {
	expr, err := parser.ParseExpr(strings.TrimSpace(expression))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	v, err := evalNode(expr)
	if err != nil {
		return "", err
	}
	return formatValue(v), nil
}

func evalNode(n ast.Expr) (constant.Value, error) {
	switch e := n.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return nil, fmt.Errorf("%w: unsupported literal %s", ErrInvalidExpression, e.Value)
		}
		v := constant.MakeFromLiteral(e.Value, e.Kind, 0)
		if v.Kind() == constant.Unknown {
			return nil, fmt.Errorf("%w: bad literal %s", ErrInvalidExpression, e.Value)
		}
		return v, nil

	case *ast.ParenExpr:
		return evalNode(e.X)

	case *ast.UnaryExpr:
		if e.Op != token.ADD && e.Op != token.SUB {
			return nil, fmt.Errorf("%w: unsupported operator %s", ErrInvalidExpression, e.Op)
		}
		x, err := evalNode(e.X)
		if err != nil {
			return nil, err
		}
		return constant.UnaryOp(e.Op, x, 0), nil

	case *ast.BinaryExpr:
		x, err := evalNode(e.X)
		if err != nil {
			return nil, err
		}
		y, err := evalNode(e.Y)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD, token.SUB, token.MUL:
			return constant.BinaryOp(x, e.Op, y), nil
		case token.QUO:
			if constant.Sign(y) == 0 {
				return nil, ErrDivisionByZero
			}
			return constant.BinaryOp(x, token.QUO, y), nil
		case token.REM:
			if x.Kind() != constant.Int || y.Kind() != constant.Int {
				return nil, fmt.Errorf("%w: %% requires integers", ErrInvalidExpression)
			}
			if constant.Sign(y) == 0 {
				return nil, ErrDivisionByZero
			}
			return constant.BinaryOp(x, token.REM, y), nil
		default:
			return nil, fmt.Errorf("%w: unsupported operator %s", ErrInvalidExpression, e.Op)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported syntax", ErrInvalidExpression)
	}
}

func formatValue(v constant.Value) string {
	if i := constant.ToInt(v); i.Kind() == constant.Int {
		return i.ExactString()
	}
	f, _ := constant.Float64Val(v)
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// breedWeights is ordered: the first breed whose name contains the argument wins.
var breedWeights = []struct {
	breed  string
	answer string
}{
	{"Scottish Terrier", "Scottish Terriers average 20 lbs"},
	{"Border Collie", "a Border Collies average weight is 37 lbs"},
	{"Toy Poodle", "a toy poodles average weight is 7 lbs"},
}

const defaultDogWeight = "An average dog weights 50 lbs"

// AverageDogWeight returns the "average_dog_weight" action, a fixed lookup of three breeds.
// Matching is case-insensitive and accepts a partial breed name; anything else gets the
// generic answer.
func AverageDogWeight() agentloops.Action {
	return agentloops.NewActionFunc(NameAverageDogWeight, func(_ context.Context, argument string) (string, error) {
		return LookupDogWeight(argument), nil
	}).WithDescription("e.g. average_dog_weight: Collie\n" +
		"Returns the average weight of a dog when given the breed.")
}

// LookupDogWeight returns the average weight sentence for a breed name.
func LookupDogWeight(name string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return defaultDogWeight
	}
	for _, b := range breedWeights {
		if strings.Contains(strings.ToLower(b.breed), needle) {
			return b.answer
		}
	}
	return defaultDogWeight
}
