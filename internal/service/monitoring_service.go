package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

const severityCritical = "critical"

// MonitoringService records client-side error and performance reports.
type MonitoringService struct {
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

func NewMonitoringService(validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *MonitoringService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{validator: validate, metrics: metrics, logger: logger.Named("client")}
}

// ReportError logs a client error. Critical reports get an extra entry.
func (s *MonitoringService) ReportError(_ context.Context, report dto.ErrorReport, meta ClientMeta) error {
	if err := s.validator.Struct(report); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid error report")
	}
	severity := report.Severity
	if severity == "" {
		severity = "medium"
	}
	userAgent := report.UserAgent
	if userAgent == "" {
		userAgent = meta.UserAgent
	}

	fields := []zap.Field{
		zap.String("message", report.Message),
		zap.String("severity", severity),
		zap.String("url", report.URL),
		zap.String("user_agent", userAgent),
		zap.String("user_id", report.UserID),
		zap.String("ip", meta.IP),
		zap.String("client_timestamp", report.Timestamp),
		zap.Any("context", report.Context),
	}
	if report.Stack != "" {
		fields = append(fields, zap.String("stack", report.Stack))
	}
	s.logger.Error("client error reported", fields...)
	if severity == severityCritical {
		s.logger.Error("CRITICAL ERROR", zap.String("message", report.Message), zap.String("url", report.URL))
	}

	s.metrics.RecordMonitoringReport("error", severity)
	return nil
}

// ReportPerformance logs a timing sample and feeds the duration histogram.
func (s *MonitoringService) ReportPerformance(_ context.Context, report dto.PerformanceReport, meta ClientMeta) error {
	if err := s.validator.Struct(report); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid performance report")
	}

	fields := []zap.Field{
		zap.String("type", report.Type),
		zap.String("page", report.Page),
		zap.String("endpoint", report.Endpoint),
		zap.Float64("duration_ms", report.Duration),
		zap.String("ip", meta.IP),
	}
	if report.Success != nil {
		fields = append(fields, zap.Bool("success", *report.Success))
	}
	if len(report.Metadata) > 0 {
		fields = append(fields, zap.ByteString("metadata", report.Metadata))
	}
	s.logger.Info("client performance reported", fields...)

	s.metrics.RecordMonitoringReport("performance", "info")
	s.metrics.ObserveClientPerformance(report.Type, report.Duration)
	return nil
}
