// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/CiteGuard/services/validator/breaker"
	"github.com/AleutianAI/CiteGuard/services/validator/cache"
	"github.com/AleutianAI/CiteGuard/services/validator/citation"
	"github.com/AleutianAI/CiteGuard/services/validator/config"
	"github.com/AleutianAI/CiteGuard/services/validator/extract"
	"github.com/AleutianAI/CiteGuard/services/validator/observability"
	"github.com/AleutianAI/CiteGuard/services/validator/pipeline"
	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
	"github.com/AleutianAI/CiteGuard/services/validator/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer(otelEndpoint string) (func(context.Context), error) {
	ctx := context.Background()

	if otelEndpoint == "" {
		otelEndpoint = "citeguard-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("citeguard-validator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	// --- Init the tracer ---
	cleanup, err := initTracer(cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	aliases, err := citation.NewAliasTable()
	if err != nil {
		log.Fatalf("FATAL: could not load the code alias table: %v", err)
	}
	parser := citation.NewParser(aliases)

	corrector, err := pipeline.NewCorrector()
	if err != nil {
		log.Fatalf("FATAL: could not load the contradiction phrases: %v", err)
	}

	sectionCache := cache.New(cfg.CacheTTL)
	brk := breaker.New(cfg.BreakerThreshold, cfg.BreakerCooldown)
	client := resolver.NewClient(cfg.StatuteSourceURL, cfg.PerCitationBudget, cfg.StatuteSourceRPS)
	resolverSvc := resolver.NewService(client, sectionCache, brk,
		cfg.PerCitationBudget, cfg.MaxBatchBudget, cfg.MaxParallelLookups)

	var extractor extract.Extractor
	if cfg.EnableLLMExtraction {
		extractor, err = extract.NewOpenAIExtractor(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			slog.Warn("extraction fallback unavailable", "error", err)
			extractor = nil
		} else {
			slog.Info("extraction fallback enabled", "model", cfg.OpenAIModel)
		}
	}

	p := pipeline.New(parser, resolverSvc, corrector, extractor, metrics, pipeline.Config{
		EnableInjection:     cfg.EnableInjection,
		EnableValidation:    cfg.EnableValidation,
		IncludeHistory:      cfg.IncludeHistory,
		MinMessageLength:    cfg.MinMessageLength,
		MaxContextMessages:  cfg.MaxContextMessages,
		PendingCap:          cfg.PendingCap,
		PendingTTL:          cfg.PendingTTL,
		EnableLLMExtraction: cfg.EnableLLMExtraction,
	})

	router := gin.Default()
	router.Use(otelgin.Middleware("citeguard-validator"))

	routes.SetupRoutes(router, p, sectionCache, brk)

	slog.Info("starting the validator server",
		"port", cfg.Port,
		"statute_source", cfg.StatuteSourceURL,
	)
	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
