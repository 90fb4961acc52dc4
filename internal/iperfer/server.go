package iperfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/golang/glog"
)

func ListenAndServe(ctx context.Context, port int) (Report, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp4", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return Report{}, fmt.Errorf("listen on %d: %w", port, err)
	}
	defer ln.Close()
	glog.Info("iPerfer server started")
	return Serve(ctx, ln)
}

// Serve accepts a single client on ln and measures what it sends.
func Serve(ctx context.Context, ln net.Listener) (Report, error) {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	conn, err := ln.Accept()
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return Report{}, ctx.Err()
		}
		return Report{}, fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()
	glog.Info("Client connected")

	stop = context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	rep, err := receive(conn)
	if err != nil && ctx.Err() != nil {
		return rep, ctx.Err()
	}
	return rep, err
}

func receive(conn io.ReadWriter) (Report, error) {
	var rep Report

	glog.V(1).Info("RTT Calculation Start")
	rtt, err := answerProbes(conn)
	if err != nil {
		return rep, err
	}
	rep.RTT = rtt
	glog.V(1).Infof("RTT = %d ms", rtt.Milliseconds())

	chunk := make([]byte, ChunkSize)
	ack := []byte{ackByte}
	start := time.Now()
	for {
		if _, err := io.ReadFull(conn, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return rep, fmt.Errorf("receive data: %w", err)
		}
		rep.Bytes += ChunkSize
		if _, err := conn.Write(ack); err != nil {
			return rep, fmt.Errorf("send ack: %w", err)
		}
		rep.Acks++
	}
	rep.Duration = time.Since(start)
	rep.Rate = serverRate(rep.Bytes, rep.Duration)

	glog.Info(rep.ServerSummary())
	return rep, nil
}

// answerProbes acknowledges every probe and times the gaps between them.
func answerProbes(conn io.ReadWriter) (time.Duration, error) {
	buf := make([]byte, 1)
	var samples []time.Duration
	start := time.Now()
	for i := 0; i < rttProbes; i++ {
		if _, err := io.ReadFull(conn, buf); err != nil {
			return 0, fmt.Errorf("receive probe: %w", err)
		}
		if buf[0] != probeByte {
			return 0, fmt.Errorf("%w: %q", ErrInvalidByte, buf[0])
		}
		buf[0] = ackByte
		if _, err := conn.Write(buf); err != nil {
			return 0, fmt.Errorf("send probe ack: %w", err)
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
