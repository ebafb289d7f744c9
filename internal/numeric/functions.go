// Package numeric is the function library generated source is evaluated
// against. Tensors are numbers or rectangular nests of lists (or tuples) of
// numbers; results are always numbers or nested lists.
package numeric

import (
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions returns a fresh copy of the library keyed by the names source
// refers to them by.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"add":       binary("add", func(x, y float64) float64 { return x + y }),
		"sub":       binary("sub", func(x, y float64) float64 { return x - y }),
		"mul":       binary("mul", func(x, y float64) float64 { return x * y }),
		"div":       binary("div", func(x, y float64) float64 { return x / y }),
		"neg":       unary("neg", func(x float64) float64 { return -x }),
		"relu":      unary("relu", Relu),
		"sigmoid":   unary("sigmoid", Sigmoid),
		"tanh":      unary("tanh", math.Tanh),
		"sum":       SumFunc,
		"transpose": TransposeFunc,
		"matmul":    MatMulFunc,
		"linear":    LinearFunc,

		"abs":    stdlib.AbsoluteFunc,
		"max":    stdlib.MaxFunc,
		"min":    stdlib.MinFunc,
		"length": stdlib.LengthFunc,
		"concat": stdlib.ConcatFunc,
	}
}

// Operators maps HCL arithmetic operators to the element-wise library
// function that implements them on tensors.
var Operators = map[string]string{
	"+": "add",
	"-": "sub",
	"*": "mul",
	"/": "div",
}

// Relu clamps negative values to zero.
func Relu(x float64) float64 { return math.Max(0, x) }

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func tensorParam(name string) function.Parameter {
	return function.Parameter{
		Name:             name,
		Type:             cty.DynamicPseudoType,
		AllowDynamicType: true,
	}
}

func unary(name string, fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Description: fmt.Sprintf("Applies %s to every element of a tensor.", name),
		Params:      []function.Parameter{tensorParam("x")},
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			x, err := FromValue(args[0])
			if err != nil {
				return cty.NilVal, function.NewArgError(0, err)
			}
			return x.Map(fn).Result()
		},
	})
}

func binary(name string, fn func(x, y float64) float64) function.Function {
	return function.New(&function.Spec{
		Description: fmt.Sprintf("Computes %s element-wise with broadcasting.", name),
		Params:      []function.Parameter{tensorParam("a"), tensorParam("b")},
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			a, err := FromValue(args[0])
			if err != nil {
				return cty.NilVal, function.NewArgError(0, err)
			}
			b, err := FromValue(args[1])
			if err != nil {
				return cty.NilVal, function.NewArgError(1, err)
			}
			out, err := Broadcast(a, b, fn)
			if err != nil {
				return cty.NilVal, err
			}
			return out.Result()
		},
	})
}

// SumFunc adds every element of a tensor.
var SumFunc = function.New(&function.Spec{
	Description: "Adds every element of a tensor.",
	Params:      []function.Parameter{tensorParam("x")},
	Type:        function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		x, err := FromValue(args[0])
		if err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		return Sum(x).Result()
	},
})

// TransposeFunc swaps the dimensions of a matrix.
var TransposeFunc = function.New(&function.Spec{
	Description: "Swaps the dimensions of a matrix.",
	Params:      []function.Parameter{tensorParam("x")},
	Type:        function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		x, err := FromValue(args[0])
		if err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		out, err := Transpose(x)
		if err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		return out.Result()
	},
})

// MatMulFunc multiplies two matrices or vectors.
var MatMulFunc = function.New(&function.Spec{
	Description: "Multiplies two matrices or vectors.",
	Params:      []function.Parameter{tensorParam("a"), tensorParam("b")},
	Type:        function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		a, err := FromValue(args[0])
		if err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		b, err := FromValue(args[1])
		if err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		out, err := MatMul(a, b)
		if err != nil {
			return cty.NilVal, err
		}
		return out.Result()
	},
})

// LinearFunc computes x·weightᵀ + bias. bias may be null.
var LinearFunc = function.New(&function.Spec{
	Description: "Applies an affine transformation: x times the transposed weight, plus bias.",
	Params: []function.Parameter{
		tensorParam("x"),
		tensorParam("weight"),
		{Name: "bias", Type: cty.DynamicPseudoType, AllowDynamicType: true, AllowNull: true},
	},
	Type: function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		out, err := Linear(args[0], args[1], args[2])
		if err != nil {
			return cty.NilVal, err
		}
		return out, nil
	},
})

// Linear computes x·weightᵀ + bias on cty values. bias may be null.
func Linear(x, weight, bias cty.Value) (cty.Value, error) {
	xt, err := FromValue(x)
	if err != nil {
		return cty.NilVal, function.NewArgError(0, err)
	}
	wt, err := FromValue(weight)
	if err != nil {
		return cty.NilVal, function.NewArgError(1, err)
	}
	wt, err = Transpose(wt)
	if err != nil {
		return cty.NilVal, function.NewArgError(1, err)
	}
	out, err := MatMul(xt, wt)
	if err != nil {
		return cty.NilVal, err
	}
	if bias.IsNull() {
		return out.Result()
	}
	bt, err := FromValue(bias)
	if err != nil {
		return cty.NilVal, function.NewArgError(2, err)
	}
	out, err = Broadcast(out, bt, func(a, b float64) float64 { return a + b })
	if err != nil {
		return cty.NilVal, err
	}
	return out.Result()
}
