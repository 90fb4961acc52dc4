package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"
	"github.com/vishvananda/netlink"
)

const (
	netemHandleMajor = 10
	tbfHandleMajor   = 20

	defaultNetemLimit = 1000
	minTbfBurst       = 15000 // bytes
	tbfLatency        = 50 * time.Millisecond
)

// Shaping describes the tc tree of one interface: a root netem qdisc for
// delay, loss and queue limit, and a child tbf when the rate is capped.
type Shaping struct {
	Rate  uint64 // bits per second, 0 for unlimited
	Delay time.Duration
	Loss  float64 // percent
	Limit uint32  // packets queued in netem
}

func (s Shaping) IsZero() bool {
	return s == Shaping{}
}

func (s Shaping) netemAttrs() netlink.NetemQdiscAttrs {
	limit := s.Limit
	if limit == 0 {
		limit = defaultNetemLimit
	}
	return netlink.NetemQdiscAttrs{
		Latency: uint32(s.Delay / time.Microsecond),
		Loss:    float32(s.Loss),
		Limit:   limit,
	}
}

// tbfParams returns rate in bytes/s, burst and queue limit in bytes.
func (s Shaping) tbfParams() (rate uint64, burst uint32, limit uint32) {
	rate = s.Rate / 8
	burst = uint32(rate / 250) // one 4ms tick worth of data
	if burst < minTbfBurst {
		burst = minTbfBurst
	}
	l := float64(rate)*tbfLatency.Seconds() + float64(burst)
	if l > math.MaxUint32 {
		l = math.MaxUint32
	}
	return rate, burst, uint32(l)
}

func (s Shaping) apply(h *netlink.Handle, link netlink.Link) error {
	idx := link.Attrs().Index
	name := link.Attrs().Name

	netem := netlink.NewNetem(netlink.QdiscAttrs{
		LinkIndex: idx,
		Handle:    netlink.MakeHandle(netemHandleMajor, 0),
		Parent:    netlink.HANDLE_ROOT,
	}, s.netemAttrs())
	if err := h.QdiscReplace(netem); err != nil {
		return fmt.Errorf("netem on %s: %w", name, err)
	}

	if s.Rate == 0 {
		glog.V(2).Infof("shaped %s: delay=%s loss=%.2f%%", name, s.Delay, s.Loss)
		return nil
	}

	rate, burst, limit := s.tbfParams()
	tbf := &netlink.Tbf{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: idx,
			Handle:    netlink.MakeHandle(tbfHandleMajor, 0),
			Parent:    netlink.MakeHandle(netemHandleMajor, 1),
		},
		Rate:   rate,
		Limit:  limit,
		Buffer: netlink.Xmittime(rate, burst),
	}
	if err := h.QdiscReplace(tbf); err != nil {
		return fmt.Errorf("tbf on %s: %w", name, err)
	}

	glog.V(2).Infof("shaped %s: rate=%dbit/s delay=%s loss=%.2f%%", name, s.Rate, s.Delay, s.Loss)
	return nil
}
