package numeric

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense row-major array of float64 values. A Tensor with an
// empty Shape is a scalar.
type Tensor struct {
	Shape []int
	Data  []float64
}

// Scalar returns a rank-0 tensor.
func Scalar(v float64) Tensor {
	return Tensor{Data: []float64{v}}
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.Shape) }

// FromValue converts a number or a rectangular nest of lists or tuples of
// numbers into a Tensor.
func FromValue(v cty.Value) (Tensor, error) {
	if v.IsNull() {
		return Tensor{}, fmt.Errorf("tensor value must not be null")
	}
	if !v.IsKnown() {
		return Tensor{}, fmt.Errorf("tensor value must be known")
	}

	ty := v.Type()
	switch {
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return Scalar(f), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var (
			shape []int
			data  []float64
		)
		n := v.LengthInt()
		if n == 0 {
			return Tensor{Shape: []int{0}}, nil
		}
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, ev := it.Element()
			sub, err := FromValue(ev)
			if err != nil {
				return Tensor{}, fmt.Errorf("element %d: %w", i, err)
			}
			if i == 0 {
				shape = sub.Shape
			} else if !slices.Equal(shape, sub.Shape) {
				return Tensor{}, fmt.Errorf("element %d has shape %v, expected %v", i, sub.Shape, shape)
			}
			data = append(data, sub.Data...)
		}
		return Tensor{Shape: append([]int{n}, shape...), Data: data}, nil
	default:
		return Tensor{}, fmt.Errorf("expected a number or a list of numbers, got %s", ty.FriendlyName())
	}
}

// Value converts t into a cty number or nested list of numbers.
func (t Tensor) Value() cty.Value {
	if t.Rank() == 0 {
		return cty.NumberVal(new(big.Float).SetFloat64(t.Data[0]))
	}
	return t.value(0, 0)
}

func (t Tensor) value(dim, offset int) cty.Value {
	if dim == t.Rank() {
		return cty.NumberVal(new(big.Float).SetFloat64(t.Data[offset]))
	}
	if t.Shape[dim] == 0 {
		return cty.ListValEmpty(elemType(t.Rank() - dim - 1))
	}
	stride := 1
	for _, s := range t.Shape[dim+1:] {
		stride *= s
	}
	elems := make([]cty.Value, t.Shape[dim])
	for i := range elems {
		elems[i] = t.value(dim+1, offset+i*stride)
	}
	return cty.ListVal(elems)
}

func elemType(rank int) cty.Type {
	ty := cty.Number
	for i := 0; i < rank; i++ {
		ty = cty.List(ty)
	}
	return ty
}

// Map applies fn to every element.
func (t Tensor) Map(fn func(float64) float64) Tensor {
	out := Tensor{Shape: append([]int(nil), t.Shape...), Data: make([]float64, len(t.Data))}
	for i, v := range t.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// Broadcast applies fn element-wise over a and b, broadcasting trailing
// dimensions the way array libraries do: dimensions are aligned from the
// right and must be equal or 1.
func Broadcast(a, b Tensor, fn func(x, y float64) float64) (Tensor, error) {
	rank := max(a.Rank(), b.Rank())
	shape := make([]int, rank)
	for i := 0; i < rank; i++ {
		da, db := dimFromRight(a, rank-1-i), dimFromRight(b, rank-1-i)
		switch {
		case da == db, db == 1:
			shape[rank-1-i] = da
		case da == 1:
			shape[rank-1-i] = db
		default:
			return Tensor{}, fmt.Errorf("shapes %v and %v cannot be broadcast together", a.Shape, b.Shape)
		}
	}

	size := 1
	for _, s := range shape {
		size *= s
	}
	out := Tensor{Shape: shape, Data: make([]float64, size)}
	idx := make([]int, rank)
	for flat := 0; flat < size; flat++ {
		out.Data[flat] = fn(a.Data[broadcastOffset(a, idx)], b.Data[broadcastOffset(b, idx)])
		for d := rank - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return out, nil
}

// dimFromRight returns the size of dimension i counted from the right, or 1
// when t has fewer dimensions.
func dimFromRight(t Tensor, i int) int {
	if i >= t.Rank() {
		return 1
	}
	return t.Shape[t.Rank()-1-i]
}

func broadcastOffset(t Tensor, idx []int) int {
	lead := len(idx) - t.Rank()
	offset, stride := 0, 1
	for d := t.Rank() - 1; d >= 0; d-- {
		i := idx[lead+d]
		if t.Shape[d] == 1 {
			i = 0
		}
		offset += i * stride
		stride *= t.Shape[d]
	}
	return offset
}

// MatMul multiplies a and b. Rank-1 operands are treated as a row vector on
// the left and a column vector on the right, and the added dimension is
// removed from the result.
func MatMul(a, b Tensor) (Tensor, error) {
	if a.Rank() == 0 || b.Rank() == 0 || a.Rank() > 2 || b.Rank() > 2 {
		return Tensor{}, fmt.Errorf("matmul expects rank 1 or 2 operands, got shapes %v and %v", a.Shape, b.Shape)
	}
	am, ak := 1, a.Shape[0]
	if a.Rank() == 2 {
		am, ak = a.Shape[0], a.Shape[1]
	}
	bk, bn := b.Shape[0], 1
	if b.Rank() == 2 {
		bn = b.Shape[1]
	}
	if ak != bk {
		return Tensor{}, fmt.Errorf("matmul inner dimensions differ: shapes %v and %v", a.Shape, b.Shape)
	}

	var shape []int
	if a.Rank() == 2 {
		shape = append(shape, am)
	}
	if b.Rank() == 2 {
		shape = append(shape, bn)
	}
	// gonum panics on zero-sized matrices.
	if am == 0 || ak == 0 || bn == 0 {
		return Tensor{Shape: shape, Data: make([]float64, am*bn)}, nil
	}

	var out mat.Dense
	out.Mul(mat.NewDense(am, ak, a.Data), mat.NewDense(bk, bn, b.Data))
	return Tensor{Shape: shape, Data: denseData(&out)}, nil
}

// Transpose swaps the two dimensions of a rank-2 tensor. Lower ranks are
// returned unchanged.
func Transpose(t Tensor) (Tensor, error) {
	switch t.Rank() {
	case 0, 1:
		return t, nil
	case 2:
		rows, cols := t.Shape[0], t.Shape[1]
		if rows == 0 || cols == 0 {
			return Tensor{Shape: []int{cols, rows}}, nil
		}
		out := mat.DenseCopyOf(mat.NewDense(rows, cols, t.Data).T())
		return Tensor{Shape: []int{cols, rows}, Data: denseData(out)}, nil
	default:
		return Tensor{}, fmt.Errorf("transpose expects rank at most 2, got shape %v", t.Shape)
	}
}

// denseData copies m into a fresh row-major slice.
func denseData(m *mat.Dense) []float64 {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return data
}

// ErrNaN is returned when a result holds NaN, which cty numbers cannot
// represent.
var ErrNaN = errors.New("result is not a number")

// Result converts t into a cty value, failing with ErrNaN instead of
// panicking on NaN elements.
func (t Tensor) Result() (cty.Value, error) {
	if slices.ContainsFunc(t.Data, math.IsNaN) {
		return cty.NilVal, ErrNaN
	}
	return t.Value(), nil
}

// Sum adds every element.
func Sum(t Tensor) Tensor {
	var s float64
	for _, v := range t.Data {
		s += v
	}
	return Scalar(s)
}
