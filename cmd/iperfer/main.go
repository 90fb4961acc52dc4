// Command iperfer measures throughput and round trip time between two hosts.
//
//	iperfer -s -p <port>
//	iperfer -c -h <server ip> -p <port> -t <seconds> [-r <mbit/s>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"measnet/internal/iperfer"
)

func main() {
	var cfg iperfer.Config
	flag.BoolVar(&cfg.Server, "s", false, "enable server mode")
	flag.BoolVar(&cfg.Client, "c", false, "enable client mode")
	flag.StringVar(&cfg.Host, "h", "", "server address (client mode)")
	flag.IntVar(&cfg.Port, "p", 0, "port number")
	flag.IntVar(&cfg.Time, "t", 0, "seconds to send data (client mode)")
	flag.Float64Var(&cfg.Rate, "r", 0, "cap the sending rate in Mbit/s (client mode)")
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server {
		rep, err := iperfer.ListenAndServe(ctx, cfg.Port)
		if err != nil {
			glog.Errorf("server: %v", err)
			glog.Flush()
			os.Exit(1)
		}
		fmt.Println(rep.ServerSummary())
		return
	}

	rep, err := iperfer.Dial(ctx, cfg.Host, cfg.Port, time.Duration(cfg.Time)*time.Second, cfg.Rate)
	if err != nil {
		glog.Errorf("client: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	fmt.Println(rep.ClientSummary())
}
