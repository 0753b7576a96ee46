package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	analyticsService "github.com/weftlabs/weft/pkg/analytics/service"
	"github.com/weftlabs/weft/pkg/config"
	"github.com/weftlabs/weft/pkg/elasticsearch/bootstrapper"
	"github.com/weftlabs/weft/pkg/elasticsearch/client"
	"github.com/weftlabs/weft/pkg/metrics"
	otelServer "github.com/weftlabs/weft/pkg/otel/server"
	pipelineModel "github.com/weftlabs/weft/pkg/pipeline/model"
	pipelineService "github.com/weftlabs/weft/pkg/pipeline/service"
	sessionizeService "github.com/weftlabs/weft/pkg/sessionize/service"
	spanService "github.com/weftlabs/weft/pkg/span/service"
	treeService "github.com/weftlabs/weft/pkg/tree/service"
	"github.com/weftlabs/weft/pkg/write_buffer"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	settings, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load settings", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	closedCache, err := sessionizeService.NewClosedSessionCache()
	if err != nil {
		logger.Fatal("Failed to create closed session cache", zap.Error(err))
	}

	engine, err := sessionizeService.NewEngine(
		sessionizeService.EngineParams{
			PartitionCount:      settings.PartitionCount,
			InactivityThreshold: settings.InactivityThresholdMs,
			MaxSessionMessages:  settings.MaxSessionMessages,
			EpochGranularity:    time.Duration(settings.EpochGranularityMs) * time.Millisecond,
		},
		closedCache,
		m,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create sessionization engine", zap.Error(err))
	}

	var sink write_buffer.DatabaseWriteBuffer[pipelineModel.TraceDocument]
	if settings.ElasticsearchEnabled {
		es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: settings.ElasticsearchAddrs})
		if err != nil {
			logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
		}
		bs := bootstrapper.NewBootstrapper(es, logger)
		if err := bs.BootstrapElasticsearch(); err != nil {
			logger.Fatal("Failed to bootstrap elasticsearch", zap.Error(err))
		}
		wc := client.NewWeftClientImpl(es, client.Async)
		sink = write_buffer.NewDatabaseWriteBufferImpl[pipelineModel.TraceDocument](
			wc,
			bootstrapper.TraceIndexName,
			logger,
		)
	}

	codec := spanService.NewSpanIdCodec()
	pipeline := pipelineService.NewReconstructionPipeline(
		engine,
		treeService.NewTreeBuilderService(codec, logger),
		analyticsService.NewAnalyticsService(),
		analyticsService.NewEpochStatsService(settings.TopKShapes),
		sink,
		m,
		logger,
	)

	engine.Start()
	eventBus := EventBus.New()
	pipelineCleanup, err := pipeline.Start(eventBus)
	if err != nil {
		logger.Fatal("Failed to start reconstruction pipeline", zap.Error(err))
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(settings.MetricsListenAddr, mux); err != nil {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	listener, err := net.Listen("tcp", settings.GrpcListenAddr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.Error(err))
	}

	srv := grpc.NewServer()
	logsServiceServer := otelServer.NewLogServiceServerImpl(engine, settings.SourceReorderSlackMs, logger)
	protoLogs.RegisterLogsServiceServer(srv, logsServiceServer)

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		logger.Info("Shutting down", zap.Bool("drain", settings.DrainOnShutdown))
		srv.GracefulStop()
		engine.Shutdown(settings.DrainOnShutdown)
		pipelineCleanup()
	}()

	logger.Info("gRPC service started, listening for instrumented log streams...")
	if err := srv.Serve(listener); err != nil {
		logger.Fatal("Failed to serve", zap.Error(err))
	}
}
