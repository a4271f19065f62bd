package controlplane

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	logMessageRequestStartedConstant = "control plane request"
	logMessageRequestFailedConstant  = "control plane request failed"
	logMessageRequestDoneConstant    = "control plane response"
	logFieldMethodConstant           = "method"
	logFieldPathConstant             = "path"
	logFieldDurationConstant         = "duration"
	logFieldAuthorizedConstant       = "authorized"
	authorizationHeaderNameConstant  = "Authorization"
)

// loggingRoundTripper records each round trip at debug level. Credentials are
// reduced to a presence flag.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *zap.Logger
}

func newLoggingRoundTripper(base http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	return &loggingRoundTripper{base: base, logger: logger}
}

func (roundTripper *loggingRoundTripper) RoundTrip(request *http.Request) (*http.Response, error) {
	startedAt := time.Now()
	roundTripper.logger.Debug(
		logMessageRequestStartedConstant,
		zap.String(logFieldMethodConstant, request.Method),
		zap.String(logFieldPathConstant, request.URL.Path),
		zap.Bool(logFieldAuthorizedConstant, len(request.Header.Get(authorizationHeaderNameConstant)) > 0),
	)

	response, roundTripError := roundTripper.base.RoundTrip(request)
	elapsed := time.Since(startedAt)
	if roundTripError != nil {
		roundTripper.logger.Debug(
			logMessageRequestFailedConstant,
			zap.String(logFieldMethodConstant, request.Method),
			zap.String(logFieldPathConstant, request.URL.Path),
			zap.Duration(logFieldDurationConstant, elapsed),
			zap.Error(roundTripError),
		)
		return response, roundTripError
	}

	roundTripper.logger.Debug(
		logMessageRequestDoneConstant,
		zap.String(logFieldMethodConstant, request.Method),
		zap.String(logFieldPathConstant, request.URL.Path),
		zap.Int(logFieldStatusCodeConstant, response.StatusCode),
		zap.Duration(logFieldDurationConstant, elapsed),
	)

	return response, nil
}
