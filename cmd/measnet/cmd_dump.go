package main

import (
	"fmt"
	"os"

	"measnet/internal/topology"
)

func cmdDump(args []string) error {
	cfg := loadConfig()
	topo, err := loadTopology(cfg, args)
	if err != nil {
		return err
	}

	data, err := topo.Marshal()
	if err != nil {
		return err
	}
	os.Stdout.Write(data)

	plan, err := topology.NewPlan(topo, topology.PlanOptions{
		IPBase:        cfg.IPBase,
		AutoSetMacs:   cfg.AutoSetMacs,
		AutoStaticArp: cfg.AutoStaticArp,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("%-8s  %-10s  %-18s  %s\n", "HOST", "INTERFACE", "ADDRESS", "MAC")
	for _, h := range plan.Hosts {
		fmt.Printf("%-8s  %-10s  %-18s  %s\n", h.Name, h.Iface, h.Addr, h.MAC)
	}

	fmt.Println()
	fmt.Printf("%-22s  %s\n", "LINK", "PARAMETERS")
	for _, l := range plan.Links {
		params := l.Options.String()
		if params == "" {
			params = "-"
		}
		fmt.Printf("%-22s  %s\n", l.A.Name+"<->"+l.B.Name, params)
	}
	fmt.Printf("\n%d static ARP entries\n", len(plan.Neighbors))
	return nil
}
