package engine

import (
	"math/rand/v2"
	"sync"
)

// RandomSource 返回 [0,1) 的均匀随机数
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource 使用进程级随机数，可并发调用
var DefaultSource RandomSource = globalSource{}

type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSource 固定种子的随机源，相同种子产生相同序列
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Fixed 始终返回同一个值
type Fixed float64

func (f Fixed) Float64() float64 { return float64(f) }

// NoJitter 让扰动项恰好为 0
const NoJitter = Fixed(0.5)
