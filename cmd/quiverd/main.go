// Command quiverd is the long-running search node: it runs the scheduled
// indexing pipeline for every configured source, serves the LeafSearch and
// FetchDocs RPCs for the splits its metastore knows about, and answers
// RootSearch by fanning out across its configured peers.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/btcsuite/btclog/v2"
	"google.golang.org/grpc"

	"github.com/roasbeef/quiver/internal/actor"
	"github.com/roasbeef/quiver/internal/build"
	"github.com/roasbeef/quiver/internal/config"
	"github.com/roasbeef/quiver/internal/gc"
	"github.com/roasbeef/quiver/internal/indexiface"
	"github.com/roasbeef/quiver/internal/indexing"
	"github.com/roasbeef/quiver/internal/indexing/campaign"
	"github.com/roasbeef/quiver/internal/metastore"
	"github.com/roasbeef/quiver/internal/metastore/ledger"
	"github.com/roasbeef/quiver/internal/scheduler"
	"github.com/roasbeef/quiver/internal/search/leaf"
	"github.com/roasbeef/quiver/internal/search/root"
	"github.com/roasbeef/quiver/internal/storageiface"
	"github.com/roasbeef/quiver/internal/wire"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to quiverd TOML config (empty uses built-in defaults)")
		logDir         = flag.String("log-dir", "~/.quiver/logs", "Directory for log files (empty to disable file logging)")
		maxLogFiles    = flag.Int("max-log-files", build.DefaultMaxLogFiles, "Maximum number of rotated log files to keep")
		maxLogFileSize = flag.Int("max-log-file-size", build.DefaultMaxLogFileSize, "Maximum log file size in MB before rotation")
	)
	flag.Parse()

	logDirExpanded := expandHome(*logDir)

	var logRotator *build.RotatingLogWriter
	if logDirExpanded != "" {
		logRotator = build.NewRotatingLogWriter()
		err := logRotator.InitLogRotator(&build.LogRotatorConfig{
			LogDir:         logDirExpanded,
			MaxLogFiles:    *maxLogFiles,
			MaxLogFileSize: *maxLogFileSize,
		})
		if err != nil {
			log.Printf("Failed to init log rotator: %v (continuing without file logging)", err)
			logRotator = nil
		} else {
			defer logRotator.Close()
			multiWriter := io.MultiWriter(os.Stderr, logRotator)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags)
		}
	}

	log.Printf("quiverd starting")

	var handlers []btclog.Handler
	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))
	if logRotator != nil {
		handlers = append(handlers, btclog.NewDefaultHandler(logRotator))
	}
	combined := build.NewHandlerSet(handlers...)
	baseLogger := btclog.NewSLogger(combined)

	actor.UseLogger(baseLogger.WithPrefix("ACTR"))
	scheduler.UseLogger(baseLogger.WithPrefix("SCHD"))
	root.UseLogger(baseLogger.WithPrefix("ROOT"))
	gc.UseLogger(baseLogger.WithPrefix("GC"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("failed to open ledger: %v", err)
	}
	defer led.Close()

	node, err := newNode(cfg)
	if err != nil {
		log.Fatalf("failed to assemble node: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %v, shutting down (send again to force exit)", sig)
		cancel()

		sig = <-sigCh
		log.Printf("received %v again, forcing immediate exit", sig)
		os.Exit(1)
	}()

	grpcServer := grpc.NewServer()
	wire.RegisterSearchServiceServer(grpcServer, node)

	lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", cfg.GRPCListenAddr, err)
	}
	go func() {
		log.Printf("search gRPC server listening on %s", cfg.GRPCListenAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server stopped: %v", err)
		}
	}()

	sched := scheduler.New(node.buildCampaignConfig(led))

	var schedConfigs []scheduler.SourceIndexingConfig
	for _, src := range cfg.Sources {
		schedConfigs = append(schedConfigs, scheduler.SourceIndexingConfig{
			SourceID:       src.SourceID,
			IndexID:        src.IndexID,
			IndexingPeriod: src.IndexingPeriod,
		})
	}
	sched.Start(ctx, schedConfigs)

	<-ctx.Done()

	log.Printf("stopping scheduler")
	sched.Stop()

	grpcServer.GracefulStop()
}

func expandHome(path string) string {
	expanded := os.ExpandEnv(path)
	if expanded == path && len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("failed to get home directory: %v", err)
		}
		expanded = home + path[1:]
	}
	return expanded
}

// indexState is the per-index collaborator set quiverd assembles once at
// startup from config.Config.Sources: the metastore, storage root, and
// decoded schema every campaign and search request against IndexID shares.
type indexState struct {
	schema  *indexiface.Schema
	storage storageiface.Storage
	meta    *metastore.Store
}

// node implements wire.SearchServiceServer by combining a leaf search
// server (answering LeafSearch/FetchDocs over every index this daemon
// knows about) with a root search coordinator (answering RootSearch by
// fanning out over cfg.PeerAddrs plus itself).
type node struct {
	cfg     config.Config
	indexes map[string]*indexState

	leaf *leaf.Server
	root *root.Root

	pool *actor.WorkerPool
}

func newNode(cfg config.Config) (*node, error) {
	indexes, err := buildIndexStates(cfg)
	if err != nil {
		return nil, err
	}

	n := &node{
		cfg:     cfg,
		indexes: indexes,
		pool:    actor.NewWorkerPool(int64(maxInt(cfg.MaxConcurrentSplitTasks, 1))),
	}

	n.leaf = leaf.NewServer(resolverFunc(n.resolveIndex), n.pool, func() indexiface.Collector {
		return &indexiface.TopKCollector{SortField: "_score", K: 1000}
	})

	clients, err := n.buildPoolClients()
	if err != nil {
		return nil, err
	}
	n.root = &root.Root{Pool: root.NewPool(clients)}

	return n, nil
}

func buildIndexStates(cfg config.Config) (map[string]*indexState, error) {
	seenIndexes := make(map[string]config.SourceIndexingConfig)
	for _, src := range cfg.Sources {
		seenIndexes[src.IndexID] = src
	}

	states := make(map[string]*indexState, len(seenIndexes))
	for indexID, src := range seenIndexes {
		fields := make([]indexiface.FieldEntry, 0, len(src.Fields))
		for _, f := range src.Fields {
			ft, err := parseFieldType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("index %s: %w", indexID, err)
			}
			fields = append(fields, indexiface.FieldEntry{
				Name: f.Name, Type: ft, Indexed: f.Indexed, Fast: f.Fast,
			})
		}
		schema, err := indexiface.NewSchema(fields...)
		if err != nil {
			return nil, fmt.Errorf("index %s: build schema: %w", indexID, err)
		}

		storage, err := storageiface.NewLocalStorage(filepath.Join(cfg.StorageRoot, indexID))
		if err != nil {
			return nil, fmt.Errorf("index %s: open storage: %w", indexID, err)
		}

		metaPath := filepath.Join(cfg.MetastoreRoot, indexID, "metastore.json")
		meta, err := openOrCreateMetastore(metaPath, indexID)
		if err != nil {
			return nil, fmt.Errorf("index %s: open metastore: %w", indexID, err)
		}

		states[indexID] = &indexState{schema: schema, storage: storage, meta: meta}
	}

	return states, nil
}

func openOrCreateMetastore(path, indexID string) (*metastore.Store, error) {
	if _, err := os.Stat(path); err == nil {
		return metastore.Open(path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	return metastore.Create(path, metastore.IndexMetadata{
		IndexID:  indexID,
		IndexURI: indexID,
	})
}

func parseFieldType(s string) (indexiface.FieldType, error) {
	switch s {
	case "text":
		return indexiface.FieldText, nil
	case "i64":
		return indexiface.FieldI64, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type resolverFunc func(ctx context.Context, indexID string) (*indexiface.Schema, storageiface.Storage, error)

func (f resolverFunc) ResolveIndex(ctx context.Context, indexID string) (*indexiface.Schema, storageiface.Storage, error) {
	return f(ctx, indexID)
}

func (n *node) resolveIndex(_ context.Context, indexID string) (*indexiface.Schema, storageiface.Storage, error) {
	st, ok := n.indexes[indexID]
	if !ok {
		return nil, nil, fmt.Errorf("quiverd: unknown index %q", indexID)
	}
	return st.schema, st.storage, nil
}

func (n *node) buildPoolClients() ([]root.Client, error) {
	clients := []root.Client{{Addr: "self", Client: root.NewLocalClient(n)}}

	for _, addr := range n.cfg.PeerAddrs {
		client, _, err := root.NewGRPCClient(addr, root.DefaultGRPCClientConfig())
		if err != nil {
			return nil, fmt.Errorf("quiverd: dial peer %s: %w", addr, err)
		}
		clients = append(clients, root.Client{Addr: addr, Client: client})
	}

	return clients, nil
}

// LeafSearch implements wire.SearchServiceServer.
func (n *node) LeafSearch(ctx context.Context, req *wire.LeafSearchRequest) (*wire.LeafSearchResult, error) {
	return n.leaf.LeafSearch(ctx, req)
}

// FetchDocs implements wire.SearchServiceServer.
func (n *node) FetchDocs(ctx context.Context, req *wire.FetchDocsRequest) (*wire.FetchDocsResult, error) {
	return n.leaf.FetchDocs(ctx, req)
}

// RootSearch implements wire.SearchServiceServer by delegating to the root
// search coordinator, looking up the metastore for req's index_id first.
func (n *node) RootSearch(ctx context.Context, req *wire.RootSearchRequest) (*wire.SearchResult, error) {
	st, ok := n.indexes[req.SearchRequest.IndexID]
	if !ok {
		return nil, root.IndexDoesNotExistError(req.SearchRequest.IndexID)
	}
	n.root.Metastore = st.meta
	return n.root.Search(ctx, *req)
}

var _ wire.SearchServiceServer = (*node)(nil)

// buildCampaignConfig returns a scheduler.ConfigBuilder that assembles a
// fresh campaign.Config for a source/index pair every time the scheduler
// dispatches one. Each campaign gets its own scratch area (a fresh temp
// directory) and rereads its configured source file from the start: this
// reference quiverd does not persist a per-source resume checkpoint across
// ticks (the metastore/campaign checkpoint machinery itself is fully
// implemented and exercised — see internal/indexing's publisher and
// internal/metastore.Checkpoint.Merge — only the daemon-level "resume
// across ticks" wiring is out of scope for a reference node).
func (n *node) buildCampaignConfig(led *ledger.Ledger) scheduler.ConfigBuilder {
	bySource := make(map[string]config.SourceIndexingConfig, len(n.cfg.Sources))
	for _, src := range n.cfg.Sources {
		bySource[src.SourceID] = src
	}

	return func(ctx context.Context, req scheduler.CampaignRequest) (campaign.Config, error) {
		src, ok := bySource[req.SourceID]
		if !ok {
			return campaign.Config{}, fmt.Errorf("quiverd: unknown source %q", req.SourceID)
		}

		st, ok := n.indexes[req.IndexID]
		if !ok {
			return campaign.Config{}, fmt.Errorf("quiverd: unknown index %q", req.IndexID)
		}

		path := src.SourceParams["path"]
		if path == "" {
			return campaign.Config{}, fmt.Errorf("quiverd: source %q missing source_params.path", req.SourceID)
		}
		batchSize := 100
		if raw, ok := src.SourceParams["batch_size"]; ok {
			parsed, err := strconv.Atoi(raw)
			if err == nil && parsed > 0 {
				batchSize = parsed
			}
		}

		docSource, err := indexing.NewFileSource(path, batchSize, metastore.Checkpoint{})
		if err != nil {
			return campaign.Config{}, err
		}

		scratchDir, err := os.MkdirTemp("", "quiver-scratch-*")
		if err != nil {
			return campaign.Config{}, err
		}
		scratchStorage, err := storageiface.NewLocalStorage(scratchDir)
		if err != nil {
			return campaign.Config{}, err
		}

		return campaign.Config{
			SourceID:             req.SourceID,
			IndexID:              req.IndexID,
			Source:               docSource,
			Schema:               st.schema,
			MemBudgetBytes:       64 << 20,
			Scratch:              indexing.NewStorageScratch(scratchStorage),
			Storage:              st.storage,
			Metastore:            st.meta,
			Ledger:               led,
			MaxConcurrentUploads: n.cfg.MaxConcurrentSplitTasks,
			Pool:                 n.pool,
		}, nil
	}
}
