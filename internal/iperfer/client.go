package iperfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"
)

// Dial connects to host:port and sends for d, capped at mbps when positive.
func Dial(ctx context.Context, host string, port int, d time.Duration, mbps float64) (Report, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return Report{}, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var limiter *rate.Limiter
	if mbps > 0 {
		limiter = rate.NewLimiter(rate.Limit(mbps*1e6/8), ChunkSize)
	}
	rep, err := Send(ctx, conn, d, limiter)
	if err != nil && ctx.Err() != nil {
		return rep, ctx.Err()
	}
	return rep, err
}

// Send runs the client side of a measurement over conn. A nil limiter
// sends as fast as the acknowledgements allow.
func Send(ctx context.Context, conn io.ReadWriter, d time.Duration, limiter *rate.Limiter) (Report, error) {
	var rep Report

	glog.V(1).Info("RTT Calculation Start")
	rtt, err := sendProbes(conn)
	if err != nil {
		return rep, err
	}
	rep.RTT = rtt
	glog.V(1).Infof("RTT = %d ms", rtt.Milliseconds())

	chunk := make([]byte, ChunkSize)
	ack := make([]byte, 1)
	start := time.Now()
	deadline := start.Add(d)
	for time.Now().Before(deadline) {
		if limiter != nil {
			if err := limiter.WaitN(ctx, ChunkSize); err != nil {
				return rep, err
			}
		}
		if _, err := conn.Write(chunk); err != nil {
			return rep, fmt.Errorf("send data: %w", err)
		}
		rep.Bytes += ChunkSize
		if err := readAck(conn, ack); err != nil {
			return rep, err
		}
		rep.Acks++
	}
	rep.Duration = time.Since(start)
	rep.Rate = clientRate(rep.Bytes, rep.Duration, rep.RTT, rep.Acks)

	glog.Info(rep.ClientSummary())
	return rep, nil
}

func sendProbes(conn io.ReadWriter) (time.Duration, error) {
	buf := make([]byte, 1)
	var samples []time.Duration
	start := time.Now()
	for i := 0; i < rttProbes; i++ {
		buf[0] = probeByte
		if _, err := conn.Write(buf); err != nil {
			return 0, fmt.Errorf("send probe: %w", err)
		}
		if err := readAck(conn, buf); err != nil {
			return 0, err
		}
		end := time.Now()
		if i >= rttWarmup {
			glog.V(2).Infof("RTT Calculation on %dth iteration: %d ms", i, end.Sub(start).Milliseconds())
			samples = append(samples, end.Sub(start))
		}
		start = end
	}
	return meanRTT(samples), nil
}

func readAck(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return fmt.Errorf("receive ack: %w", err)
	}
	if buf[0] != ackByte {
		return fmt.Errorf("%w: %q", ErrInvalidByte, buf[0])
	}
	return nil
}
