package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/core"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/pipeline"
	repo "github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

// app holds everything a run command needs. close releases models and the store.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	adapters  *extract.Set
	store     *repo.Store
	sink      *repo.MultiSink
	processor *core.Processor
}

func (a *app) close() {
	var errs []error
	if a.adapters != nil {
		errs = append(errs, a.adapters.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown failed", "error", err)
	}
}

// output selects the JSON sinks: file receives the whole document, dir one
// document per image. Empty fields skip that sink.
type output struct {
	file string
	dir  string
}

// newApp builds adapters, sinks and the processor.
func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger, out output, opts ...core.Option) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	set, err := extract.NewSet(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.adapters = set

	sinks, err := a.openSinks(ctx, out)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sink = repo.NewMultiSink(logger, sinks...)

	p := pipeline.New(logger, set.Adapters, pipeline.Config{AdapterTimeout: cfg.OCR.AdapterTimeout})
	a.processor = core.NewProcessor(logger, p, append([]core.Option{core.WithSink(a.sink), core.WithSkipHidden(true)}, opts...)...)
	return a, nil
}

func (a *app) openSinks(ctx context.Context, out output) ([]repo.ResultSink, error) {
	var sinks []repo.ResultSink
	if out.file != "" {
		sinks = append(sinks, repo.NewJSONFileSink(out.file, a.cfg.Output.Pretty, a.logger))
	}
	if out.dir != "" {
		sinks = append(sinks, repo.NewJSONDirSink(out.dir, a.cfg.Output.Pretty, a.logger))
	}
	if a.cfg.Store.Driver != repo.DriverNone {
		store, sql, err := openStore(ctx, a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.store = store
		sinks = append(sinks, sql)
	}
	if a.cfg.S3.Bucket != "" {
		s3, err := repo.NewS3Sink(ctx, s3Config(a.cfg), a.logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3)
	}
	return sinks, nil
}

func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repo.Store, *repo.SQLSink, error) {
	store, err := repo.Open(ctx, repo.Config{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxConns:        cfg.Store.MaxConns,
		MinConns:        cfg.Store.MinConns,
		MaxConnLifetime: cfg.Store.MaxConnLifetime,
		DialTimeout:     cfg.Store.DialTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	sink := repo.NewSQLSink(store, logger)
	if err := sink.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, sink, nil
}

func s3Config(cfg *common.Config) repo.S3Config {
	return repo.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Prefix:          cfg.S3.Prefix,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	}
}
