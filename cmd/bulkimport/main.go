package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikeblum/graph-bulk-import/auth"
	"github.com/mikeblum/graph-bulk-import/bulk"
	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
	"github.com/mikeblum/graph-bulk-import/o11y"
	"github.com/mikeblum/graph-bulk-import/report"
	"github.com/mikeblum/graph-bulk-import/secrets"
)

func main() {
	log := conf.NewLog()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.WithError(err, "Error running bulk import")
		stop()
		exit()
	}
}

func run(ctx context.Context, log *conf.Log) error {
	var s *settings
	var err error
	if s, err = NewConf().settings(graph.NewConf().Engine()); err != nil {
		return err
	}
	banner(s)

	o11yConf := o11y.NewConf()
	if o11yConf.Enabled() {
		if _, err = o11y.NewO11y(ctx, o11yConf, log); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := o11y.Cleanup(shutdownCtx); err != nil {
				log.WithError(err, "Error flushing metrics")
			}
		}()
	}

	if s.AuthorizationKey, err = resolveKey(ctx, s, auth.NewConf(), secrets.NewConf(), log); err != nil {
		return err
	}

	var engine graph.Engine
	if engine, err = openEngine(ctx, s); err != nil {
		return err
	}
	defer engine.Close(context.WithoutCancel(ctx))
	log = log.With("engine", s.Engine)

	var governor *bulk.Governor
	if governor, err = setupGovernor(ctx); err != nil {
		return err
	}
	var coll *graph.Collection
	if coll, err = prepareCollection(ctx, engine, governor, s, log); err != nil {
		log.WithErrorMsg(err, "Unable to initialize", "action", "setup")
		return err
	}

	summary, importErr := importGraph(ctx, engine, coll, s, log)
	if summary != nil {
		if err = summary.Print(os.Stdout); err != nil {
			return err
		}
		if _, err = summary.WriteBadDocuments(report.NewConf().BadDocumentsDir()); err != nil {
			return err
		}
	}

	if s.CleanupOnFinish {
		if err = cleanupOnFinish(context.WithoutCancel(ctx), engine, governor, s, log); err != nil {
			return errors.Join(importErr, err)
		}
	}
	return importErr
}

// importGraph imports the generated vertices and then the edges connecting them.
func importGraph(ctx context.Context, writer graph.Writer, coll *graph.Collection, s *settings, log *conf.Log) (*report.Summary, error) {
	var importer *bulk.Importer
	var err error
	if importer, err = bulk.NewImporter(ctx, writer, coll, bulk.NewOptions()); err != nil {
		return nil, err
	}
	pk := coll.PartitionKeyProperty()

	var vertices, edges *bulk.ImportResult
	if vertices, err = importer.ImportVertices(ctx, graph.GenerateVertices(s.Documents, pk)); err != nil {
		log.WithErrorMsg(err, "Error importing vertices", "action", "import")
		return report.NewSummary(vertices, nil), err
	}
	if edges, err = importer.ImportEdges(ctx, graph.GenerateEdges(s.Documents, pk)); err != nil {
		log.WithErrorMsg(err, "Error importing edges", "action", "import")
	}
	return report.NewSummary(vertices, edges), err
}

func banner(s *settings) {
	log := conf.NewLog()
	log.Info("Summary:")
	log.Info(report.RULE)
	log.Info("Endpoint: " + s.Endpoint)
	log.Info("Collection : " + s.Database + "." + s.Collection)
	log.Info(report.RULE)
}

func exit() {
	os.Exit(1)
}
