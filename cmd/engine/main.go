// Command engine is the infotransform engine's HTTP entry point: it
// wires the Schema Registry, Parallel Converter, Summarizer, LLM
// Extractor, Result Cache, Run Ledger, File Lifecycle Manager, and
// Direct Item Dispatcher into a Streaming Orchestrator exposed over
// one SSE endpoint, mirroring the shape of the teacher's
// cmd/worker/main.go (load config, wire collaborators, run until a
// signal arrives) but fronted by HTTP instead of a queue consumer.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
	"github.com/owenffff/infotransform-engine/internal/archive"
	"github.com/owenffff/infotransform-engine/internal/cache"
	"github.com/owenffff/infotransform-engine/internal/config"
	"github.com/owenffff/infotransform-engine/internal/convert"
	"github.com/owenffff/infotransform-engine/internal/convert/pdfclassify"
	"github.com/owenffff/infotransform-engine/internal/dispatch"
	"github.com/owenffff/infotransform-engine/internal/extract"
	"github.com/owenffff/infotransform-engine/internal/ledger"
	"github.com/owenffff/infotransform-engine/internal/lifecycle"
	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
	"github.com/owenffff/infotransform-engine/internal/orchestrator"
	"github.com/owenffff/infotransform-engine/internal/providers"
	"github.com/owenffff/infotransform-engine/internal/schema"
	"github.com/owenffff/infotransform-engine/internal/sse"
	"github.com/owenffff/infotransform-engine/internal/summarize"
	"github.com/owenffff/infotransform-engine/internal/tokens"
)

func main() {
	if err := godotenv.Load(".env.infotransform"); err != nil {
		os.Stderr.WriteString("warning: .env.infotransform not found, using system environment variables\n")
	}

	log := logging.New("engine")
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := schema.NewRegistry(schema.DefaultSchemas()...)

	resultCache := cache.New(cache.Config{
		Enabled:              cfg.CacheEnabled,
		TTLHours:             cfg.CacheTTLHours,
		MaxEntries:           cfg.CacheMaxEntries,
		HashAlgorithm:        cfg.CacheHashAlgorithm,
		MaxEntrySizeBytes:    cfg.CacheMaxEntrySizeBytes,
		CleanupIntervalHours: cfg.CacheCleanupIntervalHours,
		DBPath:               cfg.CacheDBPath,
	}, logging.New("cache"))
	if err := resultCache.Start(ctx); err != nil {
		log.Error("failed to start result cache", "err", err)
		os.Exit(1)
	}
	defer resultCache.Stop()

	runLedger := ledger.New(ledger.Config{
		Enabled: cfg.LedgerEnabled,
		DBPath:  cfg.LedgerDBPath,
	}, logging.New("ledger"))
	if err := runLedger.Start(ctx); err != nil {
		log.Error("failed to start run ledger", "err", err)
		os.Exit(1)
	}
	defer runLedger.Stop()

	lifecycleMgr := lifecycle.New(
		lifecycle.Strategy(cfg.LifecycleCleanupStrategy),
		cfg.LifecycleMaxFileRetention,
		cfg.LifecycleCleanupCheckInterval,
		logging.New("lifecycle"),
	)
	lifecycleMgr.Start()
	defer lifecycleMgr.Stop()

	estimator := tokens.NewEstimator("cl100k_base", logging.New("tokens"))

	extractorProvider := providers.NewHTTPExtractorProvider(cfg.LLMProviderBaseURL, logging.New("providers.extractor"))
	llmExtractor := extract.New(extractorProvider, nil, extract.DefaultRetryPolicy(), logging.New("extract"))

	dispatcher := dispatch.New(llmExtractor, resultCache, estimator, cfg.MaxConcurrentItems, cfg.StreamingEnablePartial, logging.New("dispatch"))

	var pdfOCR convert.Captioner
	if cfg.OCREnabled {
		pdfOCR = convert.NewTesseractCaptioner(cfg.TesseractPath)
	}
	pdfAdapter := convert.NewPDFAdapter(
		pdfclassify.New(pdfclassify.NewStdlibPageTextExtractor(), cfg.PDFMinCharsPerPage, cfg.PDFTextPageThresholdPercent),
		pdfclassify.NewStdlibPageTextExtractor(),
		pdfOCR,
		os.ReadFile,
	)
	audioAdapter := convert.NewAudioAdapter(providers.NewHTTPTranscriber(cfg.AudioProviderBaseURL, logging.New("providers.audio")), os.ReadFile)
	visionAdapter := convert.NewVisionAdapter(providers.NewHTTPCaptioner(cfg.VisionProviderBaseURL, logging.New("providers.vision")), os.ReadFile)
	passthroughAdapter := convert.NewPassthroughAdapter()

	converterRegistry := convert.NewRegistry(pdfAdapter, audioAdapter, visionAdapter, passthroughAdapter)
	converterPool := convert.NewPool(converterRegistry, cfg.MarkdownMaxWorkers, cfg.MarkdownWorkerKind, cfg.MarkdownTimeoutPerFile)

	summarizerService := summarize.NewService(
		providers.NewHTTPSummarizer(cfg.LLMProviderBaseURL, cfg.SummarizationModel, logging.New("providers.summarizer")),
		estimator,
		cfg.SummarizationTokenThreshold,
		logging.New("summarize"),
	)

	archiveExpander := archive.NewExpander(cfg.TempExtractDir, logging.New("archive"))

	orch := orchestrator.New(converterPool, summarizerService, dispatcher, registry, runLedger, lifecycleMgr, estimator, logging.New("orchestrator"))

	srv := newServer(cfg, registry, archiveExpander, orch, log)

	httpServer := &http.Server{
		Addr:    ":" + getPort(),
		Handler: srv,
	}

	go func() {
		log.Info("engine listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8090"
}

// server is the minimal HTTP front end: POST /v1/process accepts a
// list of already-uploaded file paths and streams the run over SSE.
type server struct {
	cfg      *config.Config
	registry *schema.Registry
	expander *archive.Expander
	orch     *orchestrator.Orchestrator
	log      *logging.Logger
	mux      *http.ServeMux
}

func newServer(cfg *config.Config, registry *schema.Registry, expander *archive.Expander, orch *orchestrator.Orchestrator, log *logging.Logger) *server {
	s := &server{cfg: cfg, registry: registry, expander: expander, orch: orch, log: log}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/v1/schemas", s.handleListSchemas)
	s.mux.HandleFunc("/v1/process", s.handleProcess)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.registry.List())
}

type processRequest struct {
	Files        []string `json:"files"`
	Archives     []string `json:"archives"`
	SchemaKey    string   `json:"schema_key"`
	Instructions string   `json:"instructions"`
	ModelID      string   `json:"model_id"`
}

func (s *server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apperrors.New(apperrors.KindInternal, "invalid request body", err).ToMap())
		return
	}

	runID := uuid.NewString()
	emitter, err := sse.NewEmitter(r.Context(), w, runID, s.log)
	if err != nil {
		s.log.Error("failed to open sse stream", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer emitter.Close()

	modelID := req.ModelID
	if modelID == "" {
		modelID = s.cfg.DefaultModelID
	}

	entries := make([]model.FileEntry, 0, len(req.Files))
	for _, p := range req.Files {
		entries = append(entries, model.FileEntry{Path: p, DisplayName: p, Origin: model.DirectOrigin()})
	}
	for _, a := range req.Archives {
		_, expanded := s.expander.Expand(a, a)
		entries = append(entries, expanded...)
	}

	s.orch.Process(r.Context(), orchestrator.Request{
		Files:        entries,
		SchemaKey:    req.SchemaKey,
		Instructions: req.Instructions,
		ModelID:      modelID,
		RunID:        runID,
	}, emitter.Send)
}
