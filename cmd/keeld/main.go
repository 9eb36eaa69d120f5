// Command keeld runs the engine's bundled demo graph (package
// internal/demoschema) behind the HTTP wire adapter: open the
// connector, migrate the schema, wire the dispatcher and token issuer,
// and serve. Mirrors the teacher's own examples/shop/main.go wiring
// order (open connection -> migrate schema -> construct server ->
// listen), generalized from velox's single-backend, GraphQL-fronted
// shop to this engine's dialect-switching connector and JSON/HTTP
// wire adapter.
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/syssam/keel/action"
	"github.com/syssam/keel/httpapi"
	"github.com/syssam/keel/identity"
	"github.com/syssam/keel/internal/config"
	"github.com/syssam/keel/internal/demoschema"
	"github.com/syssam/keel/sqlconn"
	"github.com/syssam/keel/testmode"
)

func main() {
	root := &cobra.Command{
		Use:   "keeld",
		Short: "Runs the schema-first data platform's demo HTTP server",
		RunE:  runServe,
	}
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	graph, err := demoschema.Build()
	if err != nil {
		return err
	}

	conn, err := sqlconn.Open(sqlconn.Dialect(cfg.DatabaseDialect), cfg.DatabaseDSN, graph, cfg.MaxConns)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("keeld: connected to %s database", cfg.DatabaseDialect)

	ctx := context.Background()
	if err := conn.Migrate(ctx, graph); err != nil {
		return err
	}
	log.Println("keeld: schema migrated")

	token, err := identity.NewToken(graph, cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	dispatcher := action.New(graph, conn).WithIssuer(token)
	if cfg.TestMode {
		dispatcher = dispatcher.WithTestModeResetter(testmode.New(graph, nil))
		log.Println("keeld: test mode enabled, every request resets the graph afterward")
	}

	server := httpapi.New(graph, conn, dispatcher, token, httpapi.WithPrefix(cfg.Prefix))

	log.Printf("keeld: listening on %s", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, server)
}
