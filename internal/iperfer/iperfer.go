package iperfer

import (
	"errors"
	"fmt"
	"time"
)

const (
	ChunkSize = 80 * 1024

	rttProbes = 8
	// the first probes warm up the connection and are not averaged
	rttWarmup = 4

	probeByte = 'M'
	ackByte   = 'A'
)

var ErrInvalidByte = errors.New("invalid byte received")

// Report is the outcome of one measurement, seen from either side.
type Report struct {
	Bytes    int64
	Duration time.Duration
	RTT      time.Duration
	Acks     int
	// Rate in Mbit/s.
	Rate float64
}

func (r Report) KB() int64 {
	return r.Bytes / 1024
}

func (r Report) rttMillis() int64 {
	return r.RTT.Milliseconds()
}

// ClientSummary renders the sender's report line.
func (r Report) ClientSummary() string {
	return fmt.Sprintf("Sent=%d KB, Rate=%.3f Mbps, RTT=%d ms", r.KB(), r.Rate, r.rttMillis())
}

// ServerSummary renders the receiver's report line.
func (r Report) ServerSummary() string {
	return fmt.Sprintf("Received=%d KB, Rate=%.3f Mbps, RTT=%d ms", r.KB(), r.Rate, r.rttMillis())
}

// clientRate discounts the time spent waiting for acknowledgements.
func clientRate(bytes int64, d, rtt time.Duration, acks int) float64 {
	mbits := float64(bytes) * 8 / 1e6
	secs := d.Seconds() - rtt.Seconds()*float64(acks)
	if secs <= 0 {
		secs = d.Seconds()
	}
	if secs <= 0 {
		return 0
	}
	return mbits / secs
}

func serverRate(bytes int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(bytes) * 8 / (d.Seconds() * 1e6)
}

func meanRTT(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	return sum / time.Duration(len(samples))
}

// Config mirrors the command line of the tool.
type Config struct {
	Server bool
	Client bool
	Host   string
	Port   int
	// Time is the client's sending time in seconds.
	Time int
	// Rate caps the client's sending rate in Mbit/s; 0 leaves it unpaced.
	Rate float64
}

func (c Config) Validate() error {
	switch {
	case c.Server && c.Client:
		return errors.New("must specify either server or client mode, not both")
	case c.Server:
		return validPort(c.Port)
	case c.Client:
		if c.Host == "" || c.Port == 0 || c.Time == 0 {
			return errors.New("host, port, and time are required in client mode")
		}
		if err := validPort(c.Port); err != nil {
			return err
		}
		if c.Time < 0 {
			return errors.New("time must be greater than 0")
		}
		if c.Rate < 0 {
			return errors.New("rate must not be negative")
		}
		return nil
	}
	return errors.New("must specify either server or client mode")
}

func validPort(port int) error {
	if port == 0 {
		return errors.New("port number is required")
	}
	if port < 1024 || port > 65535 {
		return errors.New("port number must be in the range [1024, 65535]")
	}
	return nil
}
