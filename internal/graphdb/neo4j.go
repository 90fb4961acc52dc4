package graphdb

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"measnet/internal/topology"
)

type statement struct {
	query  string
	params map[string]any
}

// Exporter writes topologies into a Neo4j database.
type Exporter struct {
	driver   neo4j.DriverWithContext
	database string
}

// Connect opens a driver and checks the server is reachable. An empty user
// connects without authentication.
func Connect(ctx context.Context, uri, user, password, database string) (*Exporter, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Exporter{driver: driver, database: database}, nil
}

func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// Export replaces any previous copy of the topology in the database.
func (e *Exporter) Export(ctx context.Context, t *topology.Topology) error {
	stmts := exportStatements(t)
	for _, s := range stmts {
		_, err := neo4j.ExecuteQuery(ctx, e.driver, s.query, s.params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(e.database))
		if err != nil {
			return fmt.Errorf("export %s: %w", t.Name, err)
		}
	}
	glog.Infof("*** Exported %s: %d nodes, %d links", t.Name, len(t.Nodes), len(t.Links))
	return nil
}

func exportStatements(t *topology.Topology) []statement {
	stmts := []statement{
		{
			query:  `MATCH (n:Node {topology: $topology}) DETACH DELETE n`,
			params: map[string]any{"topology": t.Name},
		},
		{
			query: `CREATE CONSTRAINT uniq_topology_node IF NOT EXISTS
			FOR (n:Node)
			REQUIRE (n.topology, n.name) IS UNIQUE`,
			params: map[string]any{},
		},
	}

	for _, name := range t.NodeNames() {
		stmts = append(stmts, statement{
			query: `MERGE (n:Node {topology: $topology, name: $name}) SET n.kind = $kind`,
			params: map[string]any{
				"topology": t.Name,
				"name":     name,
				"kind":     string(t.Nodes[name].Type),
			},
		})
	}

	for _, l := range t.Links {
		stmts = append(stmts, statement{
			query: `MATCH (a:Node {topology: $topology, name: $a}), (b:Node {topology: $topology, name: $b})
			MERGE (a)-[r:LINK]-(b)
			SET r.bw = $bw, r.delay_ms = $delay_ms, r.loss = $loss, r.max_queue = $max_queue`,
			params: map[string]any{
				"topology":  t.Name,
				"a":         l.NodeA,
				"b":         l.NodeB,
				"bw":        l.Options.Bandwidth,
				"delay_ms":  float64(l.Options.Delay.Microseconds()) / 1000,
				"loss":      l.Options.Loss,
				"max_queue": int64(l.Options.MaxQueueSize),
			},
		})
	}
	return stmts
}
