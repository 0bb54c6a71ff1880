package stride

import (
	"github.com/viant/afs"

	"github.com/strideos/stride/model/program"
	"github.com/strideos/stride/service/event"
	"github.com/strideos/stride/service/executor"
	"github.com/strideos/stride/service/loader"
	"github.com/strideos/stride/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithEventService sets the event bus the scheduler publishes rounds to.
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithImageLoader sets the program image loader.
func WithImageLoader(service *loader.Service) Option {
	return func(s *Service) {
		s.runtime.images = service
	}
}

// WithImageBaseURL sets the base URL relative image locations resolve
// against.
func WithImageBaseURL(url string) Option {
	return func(s *Service) {
		s.imageBaseURL = url
	}
}

// WithFileSystem sets the file system used to fetch program images.
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithPrograms registers program images at construction time.
func WithPrograms(images ...*program.Program) Option {
	return func(s *Service) {
		s.seedImages = append(s.seedImages, images...)
	}
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.NewService (e.g. attaching a slice listener).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) {
		s.executorOptions = append(s.executorOptions, opts...)
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. The function is safe to call multiple times, the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, for example OTLP, Jaeger or Zipkin. The function is safe to
// call multiple times, the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
