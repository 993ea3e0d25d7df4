package hostsim

import (
	"fmt"
	"sync"
)

// Memory is a sparse cell store addressed in bytes with 4-byte cells.
// Strings occupy one character per cell and end with a zero cell. Reads and
// writes come from both the interpreter and network goroutines.
type Memory struct {
	mu    sync.RWMutex
	cells map[uint32]int32
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{cells: map[uint32]int32{}}
}

// Poke sets a cell without error checking, for test and scenario setup.
func (m *Memory) Poke(addr uint32, v int32) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[addr] = v
	return m
}

// PokeString lays out s starting at addr, one character per cell.
func (m *Memory) PokeString(addr uint32, s string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range []byte(s) {
		m.cells[addr+uint32(i)*4] = int32(r)
	}
	m.cells[addr+uint32(len(s))*4] = 0
	return m
}

func (m *Memory) ReadCell(addr uint32) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.cells[addr]
	if !ok {
		return 0, fmt.Errorf("read of unmapped address %#x", addr)
	}
	return v, nil
}

func (m *Memory) WriteCell(addr uint32, value int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[addr] = value
	return nil
}

func (m *Memory) ReadString(addr uint32) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []byte
	for i := 0; ; i++ {
		v, ok := m.cells[addr+uint32(i)*4]
		if !ok {
			return "", fmt.Errorf("unterminated string at %#x", addr)
		}
		if v == 0 {
			return string(out), nil
		}
		out = append(out, byte(v))
	}
}

func (m *Memory) WriteString(addr uint32, max int, s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(s)
	if max > 0 && n >= max {
		n = max - 1
	}
	for i := 0; i < n; i++ {
		m.cells[addr+uint32(i)*4] = int32(s[i])
	}
	m.cells[addr+uint32(n)*4] = 0
	return nil
}
