package heap

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// NumaNodeStats reports one node's allocation totals.
type NumaNodeStats struct {
	NodeID          int
	AllocatedBytes  uint64
	AllocationCount uint64
}

// numaNodePool is a node-local free list keyed by region size, mirroring
// fgc/src/heap/numa.rs's NumaNodePool.
type numaNodePool struct {
	nodeID int

	mu          sync.Mutex
	freeRegions map[uintptr][]uintptr

	allocatedBytes atomic.Uint64
	allocCount     atomic.Uint64
}

func newNumaNodePool(nodeID int) *numaNodePool {
	return &numaNodePool{nodeID: nodeID, freeRegions: make(map[uintptr][]uintptr)}
}

func (p *numaNodePool) allocate(size uintptr) (uintptr, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for regionSize, addrs := range p.freeRegions {
		if regionSize >= size && len(addrs) > 0 {
			addr := addrs[len(addrs)-1]
			addrs = addrs[:len(addrs)-1]
			if len(addrs) == 0 {
				delete(p.freeRegions, regionSize)
			} else {
				p.freeRegions[regionSize] = addrs
			}
			p.allocatedBytes.Add(uint64(size))
			p.allocCount.Add(1)
			return addr, true
		}
	}
	return 0, false
}

func (p *numaNodePool) free(address, size uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.freeRegions[size] = append(p.freeRegions[size], address)
	if cur := p.allocatedBytes.Load(); cur >= uint64(size) {
		p.allocatedBytes.Store(cur - uint64(size))
	} else {
		p.allocatedBytes.Store(0)
	}
	if n := p.allocCount.Load(); n > 0 {
		p.allocCount.Store(n - 1)
	}
}

func (p *numaNodePool) stats() NumaNodeStats {
	return NumaNodeStats{
		NodeID:          p.nodeID,
		AllocatedBytes:  p.allocatedBytes.Load(),
		AllocationCount: p.allocCount.Load(),
	}
}

// NumaManager binds allocation to NUMA nodes (§4.C9 "NUMA" — region
// affinity, allocator prefers local-node regions, threads can rebind).
type NumaManager struct {
	nodeCount   int
	currentNode atomic.Int64
	pools       map[int]*numaNodePool
}

// NewNumaManager detects NUMA topology and builds one pool per node. Go's
// runtime has no direct NUMA-topology query exposed to user code (unlike
// the Rust original's libnuma-backed detection), so node count falls back
// to runtime.NumCPU()-derived single-node behavior when no platform-
// specific NUMA library is wired — see DESIGN.md for why none of the
// example pack carries one.
func NewNumaManager() *NumaManager {
	nodeCount := detectNumaNodes()
	pools := make(map[int]*numaNodePool, nodeCount)
	for i := 0; i < nodeCount; i++ {
		pools[i] = newNumaNodePool(i)
	}
	return &NumaManager{nodeCount: nodeCount, pools: pools}
}

func detectNumaNodes() int {
	// No NUMA-topology library is available in the dependency graph;
	// treat the system as a single uniform-memory node, same as the
	// Rust original's own unconditional fallback.
	_ = runtime.NumCPU()
	return 1
}

// CurrentNode returns the calling thread's bound NUMA node.
func (m *NumaManager) CurrentNode() int {
	return int(m.currentNode.Load())
}

// SetCurrentNode rebinds the calling thread to node, if valid.
func (m *NumaManager) SetCurrentNode(node int) {
	if node >= 0 && node < m.nodeCount {
		m.currentNode.Store(int64(node))
	}
}

// AllocateLocal allocates size bytes from the current node's pool.
func (m *NumaManager) AllocateLocal(size uintptr) (uintptr, bool) {
	pool, ok := m.pools[m.CurrentNode()]
	if !ok {
		return 0, false
	}
	return pool.allocate(size)
}

// AllocateOnNode allocates size bytes from a specific node's pool.
func (m *NumaManager) AllocateOnNode(node int, size uintptr) (uintptr, bool) {
	pool, ok := m.pools[node]
	if !ok {
		return 0, false
	}
	return pool.allocate(size)
}

// FreeToNode returns address/size to node's free list.
func (m *NumaManager) FreeToNode(node int, address, size uintptr) {
	if pool, ok := m.pools[node]; ok {
		pool.free(address, size)
	}
}

// NodeCount returns the number of NUMA nodes tracked.
func (m *NumaManager) NodeCount() int { return m.nodeCount }

// NodeStats returns node's allocation statistics.
func (m *NumaManager) NodeStats(node int) (NumaNodeStats, bool) {
	pool, ok := m.pools[node]
	if !ok {
		return NumaNodeStats{}, false
	}
	return pool.stats(), true
}

// BindThreadToNode binds the calling thread's affinity to node. No
// platform NUMA-affinity syscall is wired (none exists in the example
// pack); this records the logical binding that AllocateLocal honors.
func (m *NumaManager) BindThreadToNode(node int) {
	m.SetCurrentNode(node)
}
