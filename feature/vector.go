package feature

import "math"

// Vector 是按词表下标升序排列的稀疏向量。
type Vector struct {
	Indices []int
	Values  []float64
}

// Len 返回非零元素个数
func (v Vector) Len() int { return len(v.Indices) }

// Norm 返回 L2 范数
func (v Vector) Norm() float64 {
	var s float64
	for _, x := range v.Values {
		s += x * x
	}
	return math.Sqrt(s)
}

// Dot 计算两个稀疏向量的内积（归并两个有序下标序列）。
func (v Vector) Dot(o Vector) float64 {
	var s float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			s += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return s
}

// Cosine 返回余弦相似度；任一向量为零向量时返回 0。
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}

// normalize 原地做 L2 归一化
func (v *Vector) normalize() {
	n := v.Norm()
	if n == 0 {
		return
	}
	for i := range v.Values {
		v.Values[i] /= n
	}
}
