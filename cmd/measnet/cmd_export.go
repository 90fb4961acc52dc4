package main

import (
	"context"
	"errors"
	"time"

	"measnet/internal/graphdb"
)

func cmdExport(args []string) error {
	cfg := loadConfig()
	if cfg.Neo4jURI == "" {
		return errors.New("NEO4J_URI is not configured")
	}
	topo, err := loadTopology(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	exporter, err := graphdb.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return err
	}
	defer exporter.Close(context.Background())

	return exporter.Export(ctx, topo)
}
