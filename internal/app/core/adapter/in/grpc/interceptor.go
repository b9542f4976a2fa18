package grpc

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AuditUnaryInterceptor 為每個 RPC 寫一筆稽核紀錄 (方法、參數、結果、耗時)
func AuditUnaryInterceptor(audit *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", path.Base(info.FullMethod)),
			zap.Any("request", req),
			zap.Duration("duration", time.Since(start)),
		}
		// soft failure 也視為失敗
		if r, ok := resp.(*TransactionResponse); ok && r != nil && !r.Success {
			fields = append(fields, zap.Bool("success", false), zap.String("code", r.Code))
			audit.Warn("operation", fields...)
			return resp, err
		}
		logOutcome(audit, err, fields)
		return resp, err
	}
}

// AuditStreamInterceptor 為 server streaming RPC 寫稽核紀錄，並記錄送出的訊息數
func AuditStreamInterceptor(audit *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		wrapped := &auditStream{ServerStream: ss}
		err := handler(srv, wrapped)

		fields := []zap.Field{
			zap.String("method", path.Base(info.FullMethod)),
			zap.Any("request", wrapped.request),
			zap.Int("sent", wrapped.sent),
			zap.Duration("duration", time.Since(start)),
		}
		logOutcome(audit, err, fields)
		return err
	}
}

func logOutcome(audit *zap.Logger, err error, fields []zap.Field) {
	if err == nil {
		audit.Info("operation", append(fields, zap.Bool("success", true))...)
		return
	}
	st := status.Convert(err)
	fields = append(fields,
		zap.Bool("success", false),
		zap.String("code", st.Code().String()),
		zap.String("error", st.Message()),
	)
	level := zapcore.WarnLevel
	switch st.Code() {
	case codes.Unknown, codes.Internal, codes.DataLoss, codes.Unavailable:
		level = zapcore.ErrorLevel
	}
	audit.Log(level, "operation", fields...)
}

type auditStream struct {
	grpc.ServerStream
	request any
	sent    int
}

func (s *auditStream) RecvMsg(m any) error {
	err := s.ServerStream.RecvMsg(m)
	if err == nil {
		s.request = m
	}
	return err
}

func (s *auditStream) SendMsg(m any) error {
	err := s.ServerStream.SendMsg(m)
	if err == nil {
		s.sent++
	}
	return err
}
