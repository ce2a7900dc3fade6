package logger

import (
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// healthServicePrefix 헬스체크 호출은 디버그 레벨로만 기록합니다.
const healthServicePrefix = "grpc.health.v1."

// NewGrpcUnaryServerInterceptor는 단일 요청/응답 gRPC 메서드에 대한 로깅 인터셉터를 생성합니다.
func NewGrpcUnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		startTime := time.Now()
		resp, err := handler(ctx, req)
		logGrpcCall(logger, info.FullMethod, err, time.Since(startTime))
		return resp, err
	}
}

// NewGrpcStreamServerInterceptor는 스트리밍 gRPC 메서드에 대한 로깅 인터셉터를 생성합니다.
// 헬스체크 Watch 스트림도 이 인터셉터를 통과합니다.
func NewGrpcStreamServerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		startTime := time.Now()
		err := handler(srv, ss)
		logGrpcCall(logger, info.FullMethod, err, time.Since(startTime))
		return err
	}
}

// logGrpcCall은 상태 코드에 따라 로그 레벨을 결정하여 기록합니다.
func logGrpcCall(logger *zap.Logger, fullMethod string, err error, duration time.Duration) {
	service := strings.TrimPrefix(path.Dir(fullMethod), "/")
	method := path.Base(fullMethod)

	statusCode := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			statusCode = st.Code()
		} else {
			statusCode = codes.Unknown
		}
	}

	fields := []zap.Field{
		zap.String("grpc.service", service),
		zap.String("grpc.method", method),
		zap.String("grpc.code", statusCode.String()),
		zap.Duration("grpc.duration", duration),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	level := grpcLogLevel(statusCode)
	if level == zapcore.InfoLevel && strings.HasPrefix(service, healthServicePrefix) {
		level = zapcore.DebugLevel
	}

	if ce := logger.Check(level, "gRPC 요청 처리"); ce != nil {
		ce.Write(fields...)
	}
}

// grpcLogLevel은 gRPC 상태 코드를 로그 레벨로 변환합니다.
func grpcLogLevel(code codes.Code) zapcore.Level {
	switch code {
	case codes.OK:
		return zapcore.InfoLevel
	case codes.Canceled, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Unavailable, codes.DataLoss, codes.NotFound:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
