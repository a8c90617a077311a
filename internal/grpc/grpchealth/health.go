package grpchealth

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"careguard/internal/infrastructure/cache"
	"careguard/internal/infrastructure/storage"
)

const (
	serviceName   = "careguard.v1.CareService"
	checkInterval = 10 * time.Second
	checkTimeout  = 2 * time.Second
)

// Register wires the standard gRPC health service and keeps its serving
// status in sync with the record store and the cache. The background
// checker stops when ctx is done.
func Register(ctx context.Context, grpcServer *grpc.Server, store storage.LogStore, c *cache.RedisCache) {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := grpc_health_v1.HealthCheckResponse_SERVING
				if !dependenciesHealthy(ctx, store, c) {
					status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
				}
				healthServer.SetServingStatus("", status)
				healthServer.SetServingStatus(serviceName, status)
			}
		}
	}()

	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
}

func dependenciesHealthy(ctx context.Context, store storage.LogStore, c *cache.RedisCache) bool {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if store != nil {
		if _, err := store.ReadDay(checkCtx, storage.CategoryEmotions, time.Now()); err != nil {
			return false
		}
	}
	if c != nil {
		if err := c.Ping(checkCtx); err != nil {
			return false
		}
	}
	return true
}
