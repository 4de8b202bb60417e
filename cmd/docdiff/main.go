// Command docdiff compares two versions of a contract document.
//
// Usage:
//
//	docdiff -config docdiff.yaml                 # HTTP API (+ MCP over QUIC if configured)
//	docdiff -mcp                                 # MCP over stdio
//	docdiff -original v1.docx -modified v2.docx  # compare once, print JSON
//	docdiff -remote host:4433 -original v1.docx -modified v2.docx
//	                                             # compare on a remote server over MCP/QUIC
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docdiff/api"
	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/compare"
	"github.com/hazyhaar/docdiff/config"
	"github.com/hazyhaar/docdiff/detector"
	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/docpipe"
	"github.com/hazyhaar/docdiff/embedding"
	"github.com/hazyhaar/docdiff/entities"
	"github.com/hazyhaar/docdiff/mcpquic"
	"github.com/hazyhaar/docdiff/ocr/tesseract"
	"github.com/hazyhaar/docdiff/render"
	"github.com/hazyhaar/docdiff/safeio"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to docdiff.yaml config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	original := flag.String("original", "", "original document (one-shot comparison)")
	modified := flag.String("modified", "", "modified document (one-shot comparison)")
	remote := flag.String("remote", "", "MCP over QUIC address of a docdiff server; -original and -modified name files under its files_root")
	insecure := flag.Bool("insecure", false, "skip certificate verification with -remote")
	flag.Parse()

	cfg, err := resolveConfig(*configPath, *listen, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docdiff: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *remote != "" {
		err = compareRemote(ctx, *remote, *insecure, *original, *modified)
	} else {
		err = run(ctx, logger, cfg, *mcpStdio, *original, *modified)
	}
	if err != nil {
		logger.Error("docdiff: fatal", "error", err)
		os.Exit(1)
	}
}

func resolveConfig(path, listen, logLevel string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, mcpStdio bool, original, modified string) error {
	caps := buildCapabilities(cfg, logger)

	rcfg := cfg.Render
	rcfg.Logger = logger
	xcfg := cfg.Extraction
	xcfg.Renderer = render.New(rcfg)
	xcfg.OCR = caps.OCR
	xcfg.Logger = logger
	xcfg.FilesRoot = cfg.MCP.FilesRoot
	pipe := docpipe.New(xcfg)

	ccfg := cfg.Compare
	ccfg.Logger = logger
	svc, err := compare.New(ccfg, caps, compare.WithExtractor(pipe))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := svc.Close(shutdownCtx); err != nil {
			logger.Warn("docdiff: jobs cancelled at shutdown", "error", err)
		}
	}()

	acfg := cfg.API
	acfg.Logger = logger
	acfg.FilesRoot = cfg.MCP.FilesRoot
	srv := api.New(acfg, svc)

	// One-shot: compare two files.
	if original != "" || modified != "" {
		return compareOnce(ctx, svc, original, modified, cfg.Extraction.MaxFileSize)
	}

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "docdiff", Version: version}, nil)
	srv.RegisterMCP(mcpSrv)
	pipe.RegisterMCP(mcpSrv)

	if mcpStdio {
		logger.Info("docdiff: serving MCP on stdio")
		return mcpSrv.Run(ctx, &mcp.StdioTransport{})
	}

	if cfg.MCP.QUICAddr != "" {
		if err := serveQUIC(ctx, logger, cfg.MCP, mcpSrv); err != nil {
			return err
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("docdiff: listening", "addr", cfg.Listen, "version", version)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("docdiff: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildCapabilities wires the optional backends and wraps them with
// timeouts and circuit breakers. Dates fall back to the built-in
// recognizer when no NER service is configured.
func buildCapabilities(cfg *config.Config, logger *slog.Logger) capability.Set {
	var caps capability.Set
	if cfg.Embedding.Enabled() {
		ecfg := cfg.Embedding
		ecfg.Logger = logger
		caps.Embedder = embedding.New(ecfg)
	}
	if cfg.Detector.Enabled() {
		caps.Detector = detector.New(cfg.Detector)
	}
	if cfg.Entities.Endpoint != "" {
		caps.Entities = entities.NewHTTP(cfg.Entities)
	} else {
		caps.Entities = entities.NewDateRecognizer()
	}
	if cfg.OCR.Enabled {
		caps.OCR = tesseract.New(cfg.OCR.Languages...)
	}

	gcfg := cfg.Guard
	gcfg.Logger = logger
	return capability.Guard(caps, gcfg)
}

func serveQUIC(ctx context.Context, logger *slog.Logger, cfg config.MCPConfig, mcpSrv *mcp.Server) error {
	var (
		tlsCfg *tls.Config
		err    error
	)
	if cfg.TLSCert != "" {
		tlsCfg, err = mcpquic.ServerTLSConfig(cfg.TLSCert, cfg.TLSKey)
	} else {
		tlsCfg, err = mcpquic.SelfSignedTLSConfig()
	}
	if err != nil {
		return fmt.Errorf("mcp quic tls: %w", err)
	}

	ln, err := mcpquic.Listen(cfg.QUICAddr, tlsCfg, mcpSrv, logger)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go func() {
		if err := ln.Serve(ctx); err != nil && ctx.Err() == nil {
			logger.Error("mcp quic", "error", err)
		}
	}()
	return nil
}

func compareOnce(ctx context.Context, svc *compare.Service, original, modified string, maxBytes int64) error {
	if original == "" || modified == "" {
		return fmt.Errorf("usage: docdiff -original <file> -modified <file>")
	}
	a, err := readSource(original, maxBytes)
	if err != nil {
		return err
	}
	b, err := readSource(modified, maxBytes)
	if err != nil {
		return err
	}

	id, err := svc.SubmitSources(ctx, a, b)
	if err != nil {
		return err
	}
	job, err := svc.Wait(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != docmodel.StatusCompleted {
		return fmt.Errorf("comparison %s: %s", job.Status, job.Message)
	}
	res, err := svc.Result(id)
	if err != nil {
		return err
	}

	return printJSON(res)
}

// compareRemote runs one comparison on a remote docdiff server. The file
// names are resolved by the server.
func compareRemote(ctx context.Context, addr string, insecure bool, original, modified string) error {
	if original == "" || modified == "" {
		return fmt.Errorf("usage: docdiff -remote <addr> -original <file> -modified <file>")
	}
	r, err := mcpquic.Dial(ctx, addr, mcpquic.ClientTLSConfig(insecure))
	if err != nil {
		return err
	}
	defer r.Close()

	resp, err := r.Compare(ctx, original, modified)
	if err != nil {
		return err
	}
	if resp.Result == nil {
		return fmt.Errorf("comparison %s: %s", resp.Job.Status, resp.Job.Message)
	}
	return printJSON(resp.Result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readSource(path string, maxBytes int64) (*compare.Source, error) {
	data, err := safeio.ReadFile(path, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &compare.Source{Name: filepath.Base(path), Data: data}, nil
}
