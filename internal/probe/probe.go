package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"os"
	"runtime"
	"time"

	"github.com/golang/glog"
	"github.com/vishvananda/netns"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const protocolICMP = 1

// Stats summarises one ping run.
type Stats struct {
	Dst      netip.Addr
	Sent     int
	Received int
	RTTs     []time.Duration
}

// Loss is the percentage of unanswered requests.
func (s Stats) Loss() float64 {
	if s.Sent == 0 {
		return 0
	}
	return 100 * float64(s.Sent-s.Received) / float64(s.Sent)
}

func (s Stats) Min() time.Duration {
	var m time.Duration
	for i, r := range s.RTTs {
		if i == 0 || r < m {
			m = r
		}
	}
	return m
}

func (s Stats) Max() time.Duration {
	var m time.Duration
	for _, r := range s.RTTs {
		if r > m {
			m = r
		}
	}
	return m
}

func (s Stats) Avg() time.Duration {
	if len(s.RTTs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, r := range s.RTTs {
		sum += r
	}
	return sum / time.Duration(len(s.RTTs))
}

func (s Stats) String() string {
	out := fmt.Sprintf("%d packets transmitted, %d received, %.0f%% packet loss",
		s.Sent, s.Received, s.Loss())
	if len(s.RTTs) > 0 {
		out += fmt.Sprintf("\nrtt min/avg/max = %.3f/%.3f/%.3f ms", ms(s.Min()), ms(s.Avg()), ms(s.Max()))
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type Options struct {
	Count    int
	Interval time.Duration
	Timeout  time.Duration // per request
}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = 1
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Second
	}
	return o
}

// Ping sends ICMP echo requests to dst from inside the network namespace at
// nsPath.
func Ping(ctx context.Context, nsPath string, dst netip.Addr, opts Options) (Stats, error) {
	opts = opts.withDefaults()
	stats := Stats{Dst: dst}
	if !dst.Is4() {
		return stats, fmt.Errorf("ping %s: only IPv4 is supported", dst)
	}

	conn, err := listenIn(nsPath)
	if err != nil {
		return stats, err
	}
	defer conn.Close()

	id := (os.Getpid() ^ rand.Intn(1<<16)) & 0xffff
	target := &net.IPAddr{IP: net.IP(dst.AsSlice())}
	buf := make([]byte, 1500)

	for seq := 1; seq <= opts.Count; seq++ {
		if seq > 1 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(opts.Interval):
			}
		}

		req, err := echoRequest(id, seq)
		if err != nil {
			return stats, err
		}
		start := time.Now()
		if _, err := conn.WriteTo(req, target); err != nil {
			return stats, fmt.Errorf("send to %s: %w", dst, err)
		}
		stats.Sent++

		rtt, ok, err := awaitReply(ctx, conn, buf, dst, id, seq, start.Add(opts.Timeout))
		if err != nil {
			return stats, err
		}
		if ok {
			stats.Received++
			stats.RTTs = append(stats.RTTs, rtt)
			glog.V(2).Infof("reply from %s: icmp_seq=%d time=%s", dst, seq, rtt)
		}
	}
	return stats, nil
}

func awaitReply(ctx context.Context, conn *icmp.PacketConn, buf []byte, dst netip.Addr, id, seq int, deadline time.Time) (time.Duration, bool, error) {
	start := time.Now()
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, false, err
	}
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if ctx.Err() != nil {
					return 0, false, ctx.Err()
				}
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("read reply: %w", err)
		}
		from, ok := peer.(*net.IPAddr)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(from.IP); !ok || addr.Unmap() != dst {
			continue
		}
		if isReply(buf[:n], id, seq) {
			return time.Since(start), true, nil
		}
	}
}

func echoRequest(id, seq int) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte("measnet")},
	}
	return msg.Marshal(nil)
}

// isReply reports whether b is the echo reply to request (id, seq).
func isReply(b []byte, id, seq int) bool {
	msg, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil || msg.Type != ipv4.ICMPTypeEchoReply {
		return false
	}
	echo, ok := msg.Body.(*icmp.Echo)
	return ok && echo.ID == id && echo.Seq == seq
}

// listenIn opens a raw ICMP socket inside the namespace at nsPath. The
// socket stays bound to that namespace after the thread switches back.
func listenIn(nsPath string) (*icmp.PacketConn, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	orig, err := netns.Get()
	if err != nil {
		return nil, fmt.Errorf("get current netns: %w", err)
	}
	defer orig.Close()

	target, err := netns.GetFromPath(nsPath)
	if err != nil {
		return nil, fmt.Errorf("open netns %s: %w", nsPath, err)
	}
	defer target.Close()

	if err := netns.Set(target); err != nil {
		return nil, fmt.Errorf("enter netns %s: %w", nsPath, err)
	}
	conn, listenErr := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err := netns.Set(orig); err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("leave netns %s: %w", nsPath, err)
	}
	if listenErr != nil {
		return nil, fmt.Errorf("listen icmp in %s: %w", nsPath, listenErr)
	}
	return conn, nil
}
