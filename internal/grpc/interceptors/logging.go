package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/utils"
)

// LoggingInterceptor returns a gRPC unary interceptor that logs requests and responses
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()

		resp, err := handler(ctx, req)

		logCompletion(info.FullMethod, "grpc_request", startTime, err)
		return resp, err
	}
}

// StreamLoggingInterceptor returns a gRPC streaming interceptor that logs stream operations
func StreamLoggingInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		startTime := time.Now()

		err := handler(srv, ss)

		logCompletion(info.FullMethod, "grpc_stream", startTime, err)
		return err
	}
}

func logCompletion(method, kind string, startTime time.Time, err error) {
	logger := logging.GetGlobalLogger()

	fields := map[string]interface{}{
		"request_id":      utils.GenerateRequestID(),
		"method":          method,
		"processing_time": utils.FormatDuration(time.Since(startTime)),
		"status_code":     codeOf(err).String(),
		"type":            kind,
	}

	if err != nil {
		logger.WithError(err).Error("gRPC call failed", fields)
		return
	}
	// health probes arrive every few seconds
	logger.Debug("gRPC call completed", fields)
}

func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}
