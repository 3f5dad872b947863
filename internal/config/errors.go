package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate() and
// identify the offending setting.
//
// Errors about a single tool or plane wrap these with the offending value.
var (
	// ErrNoTarget is returned when the CLI is given no image to analyze.
	ErrNoTarget = errors.New("no target specified: provide at least one image path")

	// ErrInvalidRequestTimeout is returned when the request timeout is not positive.
	ErrInvalidRequestTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidToolTimeout is returned when a tool timeout is not positive.
	ErrInvalidToolTimeout = errors.New("invalid tool timeout: must be positive")

	// ErrInvalidMaxProcesses is returned when the process limit is not positive.
	// A limit of zero would block every external tool forever.
	ErrInvalidMaxProcesses = errors.New("invalid max processes: must be positive")

	// ErrInvalidMaxUploadSize is returned when the upload limit is not positive.
	ErrInvalidMaxUploadSize = errors.New("invalid max upload size: must be positive")

	// ErrInvalidMaxConnections is returned when the connection limit is not positive.
	ErrInvalidMaxConnections = errors.New("invalid max connections: must be positive")

	// ErrInvalidRetention is returned when the artifact retention is not positive.
	ErrInvalidRetention = errors.New("invalid artifact retention: must be positive")

	// ErrInvalidMaxSamples is returned when the LSB sampling cap is not positive.
	ErrInvalidMaxSamples = errors.New("invalid lsb max samples: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidThresholds is returned when the LSB thresholds are negative
	// or out of order.
	ErrInvalidThresholds = errors.New("invalid lsb thresholds: need 0 <= low <= medium <= 0.5")

	// ErrInvalidLevel is returned for an unknown suspicion level name.
	ErrInvalidLevel = errors.New("invalid suspicion level")

	// ErrInvalidEnv is returned when a DEEPVISION_* variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
