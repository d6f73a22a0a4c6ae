// Package root implements spec.md §4.9: the client pool that assigns
// split-search jobs to nodes, and the two-phase (leaf search, then fetch
// docs) root search execution that fans out to them and merges the
// result.
package root

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/roasbeef/quiver/internal/wire"
)

// Client is one member of the pool: an address (used only for logging and
// deterministic assignment) plus the wire.SearchServiceClient used to
// reach it, local or over gRPC.
type Client struct {
	Addr   string
	Client wire.SearchServiceClient
}

// Job is one split assigned a placement cost, per spec.md §4.9 ("jobs:
// [{split, cost}]"). Cost is currently always 1 (a placeholder for future
// per-split cost smoothing, named explicitly in the spec).
type Job struct {
	SplitID string
	Cost    int
}

// ClientJobs pairs a pool member with the jobs assigned to it.
type ClientJobs struct {
	Client Client
	Jobs   []Job
}

// Pool holds the set of nodes root search can dispatch work to.
type Pool struct {
	clients []Client
}

// NewPool builds a Pool over clients. The slice is copied and sorted by
// Addr so that AssignJobs' determinism (spec.md §4.9 "(c) be
// deterministic given the same pool membership") doesn't depend on the
// order clients happened to be passed in.
func NewPool(clients []Client) *Pool {
	sorted := append([]Client(nil), clients...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })
	return &Pool{clients: sorted}
}

// Clients returns the pool's members in their canonical (Addr-sorted)
// order.
func (p *Pool) Clients() []Client {
	out := make([]Client, len(p.clients))
	copy(out, p.clients)
	return out
}

// AssignJobs places every job on exactly one client, balancing by summed
// cost and choosing deterministically given the same pool membership
// (spec.md §4.9's three assignment requirements). Jobs are placed heaviest
// first (ties broken by split ID, so the order jobs are passed in does not
// matter), each on the client with the lowest summed cost so far; among
// equally loaded clients, the highest rendezvous score hash(split_id, addr)
// wins. A caller that excludes a subset of clients (e.g. to retry failed
// splits elsewhere) gets a deterministic, disjoint-from-the-failed-client
// reassignment just by recomputing over the remaining pool.
func (p *Pool) AssignJobs(jobs []Job) []ClientJobs {
	byAddr := make(map[string]int, len(p.clients))
	result := make([]ClientJobs, len(p.clients))
	for i, c := range p.clients {
		result[i] = ClientJobs{Client: c}
		byAddr[c.Addr] = i
	}

	sorted := append([]Job(nil), jobs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Cost != sorted[j].Cost {
			return sorted[i].Cost > sorted[j].Cost
		}
		return sorted[i].SplitID < sorted[j].SplitID
	})
	load := make([]int, len(p.clients))

	for _, job := range sorted {
		best := -1
		var bestScore uint64
		for i, c := range p.clients {
			score := rendezvousScore(job.SplitID, c.Addr)
			if best == -1 || load[i] < load[best] ||
				(load[i] == load[best] && score > bestScore) {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			continue
		}
		result[best].Jobs = append(result[best].Jobs, job)
		load[best] += job.Cost
	}

	return result
}

// rendezvousScore scores the (splitID, addr) pair for breaking ties between
// equally loaded clients: a stable hash, not tied to iteration or insertion
// order.
func rendezvousScore(splitID, addr string) uint64 {
	h := sha256.Sum256([]byte(splitID + "\x00" + addr))
	return binary.BigEndian.Uint64(h[:8])
}

// localClient adapts a wire.SearchServiceServer living in this same process
// into a wire.SearchServiceClient, grounded on the joeycumines-go-utilpkg
// inprocgrpc idiom of satisfying a gRPC client interface with a direct,
// no-network call. Used for a pool member that is this node itself.
type localClient struct {
	srv wire.SearchServiceServer
}

// NewLocalClient wraps srv as an in-process client.
func NewLocalClient(srv wire.SearchServiceServer) wire.SearchServiceClient {
	return &localClient{srv: srv}
}

func (c *localClient) LeafSearch(ctx context.Context, req *wire.LeafSearchRequest) (*wire.LeafSearchResult, error) {
	return c.srv.LeafSearch(ctx, req)
}

func (c *localClient) FetchDocs(ctx context.Context, req *wire.FetchDocsRequest) (*wire.FetchDocsResult, error) {
	return c.srv.FetchDocs(ctx, req)
}

func (c *localClient) RootSearch(ctx context.Context, req *wire.RootSearchRequest) (*wire.SearchResult, error) {
	return c.srv.RootSearch(ctx, req)
}

var _ wire.SearchServiceClient = (*localClient)(nil)
