package emulator

import (
	"context"
	"fmt"
	"io"
	"time"

	"measnet/internal/probe"
)

const pingAllTimeout = time.Second

// PingAllResult records which host pairs could reach each other.
type PingAllResult struct {
	Hosts   []string
	Reached map[string]map[string]bool
	RTTs    map[string]map[string]time.Duration
}

func (r *PingAllResult) Sent() int {
	n := len(r.Hosts)
	return n * (n - 1)
}

func (r *PingAllResult) Received() int {
	received := 0
	for _, dsts := range r.Reached {
		for _, ok := range dsts {
			if ok {
				received++
			}
		}
	}
	return received
}

func (r *PingAllResult) DropPercent() float64 {
	if r.Sent() == 0 {
		return 0
	}
	return 100 * float64(r.Sent()-r.Received()) / float64(r.Sent())
}

// Write prints one line per source host, an X marking each unreachable
// destination, followed by the totals.
func (r *PingAllResult) Write(w io.Writer) {
	for _, src := range r.Hosts {
		fmt.Fprintf(w, "%s ->", src)
		for _, dst := range r.Hosts {
			if dst == src {
				continue
			}
			if r.Reached[src][dst] {
				fmt.Fprintf(w, " %s", dst)
			} else {
				fmt.Fprint(w, " X")
			}
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "*** Results: %.0f%% dropped (%d/%d received)\n", r.DropPercent(), r.Received(), r.Sent())
}

// PingAll sends one echo request between every ordered pair of hosts.
func (n *Net) PingAll(ctx context.Context) (*PingAllResult, error) {
	rt, err := n.runtime()
	if err != nil {
		return nil, err
	}

	res := &PingAllResult{
		Hosts:   n.Hosts(),
		Reached: map[string]map[string]bool{},
		RTTs:    map[string]map[string]time.Duration{},
	}
	for _, src := range res.Hosts {
		res.Reached[src] = map[string]bool{}
		res.RTTs[src] = map[string]time.Duration{}
		for _, dst := range res.Hosts {
			if dst == src {
				continue
			}
			ip, err := n.IP(dst)
			if err != nil {
				return nil, err
			}
			stats, err := rt.Ping(ctx, src, ip, probe.Options{Count: 1, Timeout: pingAllTimeout})
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("ping %s -> %s: %w", src, dst, err)
			}
			if stats.Received > 0 {
				res.Reached[src][dst] = true
				res.RTTs[src][dst] = stats.Avg()
			}
		}
	}
	return res, nil
}
