package flags

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/record-store/common"
	"github.com/ruteri/record-store/httpserver"
	"github.com/ruteri/record-store/interfaces"
	"github.com/ruteri/record-store/metrics"
	"github.com/ruteri/record-store/records"
	"github.com/ruteri/record-store/serializer"
	"github.com/ruteri/record-store/storage"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Output:  cCtx.App.ErrWriter,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, metricsSrv *metrics.MetricsServer) *httpserver.HTTPServerConfig {
	listenAddr := cCtx.String(ListenAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second
	if cCtx.String(MetricsAddrFlag.Name) == "" {
		metricsSrv = nil
	}

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		Metrics:                  metricsSrv,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// NewSerializer returns the document serializer selected by --format.
func NewSerializer(format string) (interfaces.RecordSerializer[serializer.Document], error) {
	switch format {
	case "json":
		return serializer.NewJSON[serializer.Document](), nil
	case "yaml", "yml":
		return serializer.NewYAML[serializer.Document](), nil
	default:
		return nil, fmt.Errorf("unsupported record format %q, expected json or yaml", format)
	}
}

// NewManager builds a document manager from the storage flags. Backends are
// instrumented when recorder is set. The returned release func closes backends
// that hold resources (Badger) and must be called once the manager is unused.
func NewManager(cCtx *cli.Context, logger *slog.Logger, recorder *metrics.Recorder) (*records.Manager[serializer.Document], func(), error) {
	release := func() {}

	s, err := NewSerializer(cCtx.String(FormatFlag.Name))
	if err != nil {
		return nil, release, err
	}

	cfg := records.Config[serializer.Document]{
		Serializer: s,
		LocalDir:   cCtx.String(LocalDirFlag.Name),
		Log:        logger,
	}

	if uri := cCtx.String(RemoteFlag.Name); uri != "" {
		remote, err := storage.NewStorageBackendFactory(logger).BackendFromURI(uri)
		if err != nil {
			return nil, release, fmt.Errorf("remote backend: %w", err)
		}
		cfg.Remote = remote

		if closer, ok := remote.(io.Closer); ok {
			release = func() {
				if err := closer.Close(); err != nil {
					logger.Error("Failed to close remote backend", "err", err)
				}
			}
		}
	}

	if recorder != nil {
		cfg.Instrument = recorder.Instrument
	}

	manager, err := records.New(cfg)
	if err != nil {
		release()
		return nil, func() {}, err
	}
	return manager, release, nil
}

var LocalDirFlag = &cli.StringFlag{
	Name:    "local-dir",
	EnvVars: []string{"RECORDS_LOCAL_DIR"},
	Usage:   "directory of the local record store; omit for remote-only mode",
}

var RemoteFlag = &cli.StringFlag{
	Name:    "remote",
	EnvVars: []string{"RECORDS_REMOTE"},
	Usage:   "remote backend URI (s3://, vault://, ipfs://, redis://, badger://, file://, mem://); omit for local-only mode",
}

var FormatFlag = &cli.StringFlag{
	Name:    "format",
	EnvVars: []string{"RECORDS_FORMAT"},
	Value:   "json",
	Usage:   "record serialization format: json or yaml",
}

var StorageFlags = []cli.Flag{
	LocalDirFlag,
	RemoteFlag,
	FormatFlag,
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to report not ready before shutting down",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
