// Package dice parses and rolls "<count>d<faces>" notation.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

const (
	MaxCount = 100
	MaxFaces = 1000
)

// ErrInvalidDiceNotation indicates malformed notation or out-of-range
// count/faces.
var ErrInvalidDiceNotation = errors.New("invalid dice notation")

// Source yields uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Spec is a parsed notation.
type Spec struct {
	Count int
	Faces int
}

func (s Spec) String() string {
	return fmt.Sprintf("%dd%d", s.Count, s.Faces)
}

// Result captures one roll of a Spec.
type Result struct {
	Spec  Spec
	Rolls []int
	Total int
}

// Parse reads notation such as "1d100" or "3D6".
func Parse(notation string) (Spec, error) {
	count, faces, ok := strings.Cut(strings.ToLower(strings.TrimSpace(notation)), "d")
	if !ok {
		return Spec{}, ErrInvalidDiceNotation
	}

	c, err := parsePositive(count, MaxCount)
	if err != nil {
		return Spec{}, err
	}
	f, err := parsePositive(faces, MaxFaces)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Count: c, Faces: f}, nil
}

func parsePositive(s string, limit int) (int, error) {
	if s == "" {
		return 0, ErrInvalidDiceNotation
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidDiceNotation
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > limit {
		return 0, ErrInvalidDiceNotation
	}
	return v, nil
}

// Roll evaluates notation with src. The result depends only on notation
// and the values src yields.
func Roll(notation string, src Source) (Result, error) {
	spec, err := Parse(notation)
	if err != nil {
		return Result{}, err
	}
	return RollSpec(spec, src), nil
}

// RollSpec rolls an already parsed spec.
func RollSpec(spec Spec, src Source) Result {
	rolls := make([]int, spec.Count)
	total := 0
	for i := range rolls {
		rolls[i] = src.Intn(spec.Faces) + 1
		total += rolls[i]
	}
	return Result{Spec: spec, Rolls: rolls, Total: total}
}

// Roller is a Source safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// NewSeededRoller seeds a Roller from crypto/rand.
func NewSeededRoller() (*Roller, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewRoller(int64(binary.LittleEndian.Uint64(b[:]))), nil
}

func (r *Roller) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Roll evaluates notation with the roller's own source.
func (r *Roller) Roll(notation string) (Result, error) {
	return Roll(notation, r)
}
