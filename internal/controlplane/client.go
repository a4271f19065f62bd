package controlplane

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	defaultSchemeConstant                = "https"
	defaultUserAgentConstant             = "neonbranch"
	branchEndpointTemplateConstant       = "/api/v2/projects/%s/branches/%s"
	requestURLTemplateConstant           = "%s://%s%s"
	acceptHeaderNameConstant             = "Accept"
	contentTypeHeaderNameConstant        = "Content-Type"
	userAgentHeaderNameConstant          = "User-Agent"
	jsonMediaTypeConstant                = "application/json"
	hostFieldNameConstant                = "host"
	projectIDFieldNameConstant           = "project_id"
	branchIDFieldNameConstant            = "branch_id"
	tokenFieldNameConstant               = "token"
	requiredValueMessageConstant         = "value required"
	maximumResponseBodyBytesConstant     = 1 << 20
	deleteBranchOperationNameConstant    = OperationName("DeleteBranch")
	logMessageDeleteResponseConstant     = "control plane delete response"
	logFieldStatusCodeConstant           = "status_code"
	logFieldOutcomeConstant              = "outcome"
	logFieldResponseBytesConstant        = "response_bytes"
	logFieldProjectIDConstant            = "project_id"
	logFieldBranchIDConstant             = "branch_id"
	logFieldConfirmedBranchIDConstant    = "confirmed_branch_id"
	confirmedBranchIDPlaceholderConstant = ""
)

// OperationName describes a named control plane workflow supported by the client.
type OperationName string

// BranchLocator identifies a branch within a control plane project.
type BranchLocator struct {
	Host      string
	ProjectID string
	BranchID  string
}

// Complete reports whether the project and branch identifiers are both set.
func (locator BranchLocator) Complete() bool {
	return len(strings.TrimSpace(locator.ProjectID)) > 0 && len(strings.TrimSpace(locator.BranchID)) > 0
}

// Path returns the API path addressing the branch.
func (locator BranchLocator) Path() string {
	return fmt.Sprintf(
		branchEndpointTemplateConstant,
		url.PathEscape(strings.TrimSpace(locator.ProjectID)),
		url.PathEscape(strings.TrimSpace(locator.BranchID)),
	)
}

// ClientOptions configures a control plane client.
type ClientOptions struct {
	Token          string
	Scheme         string
	UserAgent      string
	RequestTimeout time.Duration
	BaseTransport  http.RoundTripper
	Logger         *zap.Logger
}

// BranchDeletionClient is the minimal surface consumed by branch deletion workflows.
type BranchDeletionClient interface {
	DeleteBranch(executionContext context.Context, locator BranchLocator) (AttemptResult, error)
}

// Client issues requests against the control plane API.
type Client struct {
	httpClient *http.Client
	scheme     string
	userAgent  string
	logger     *zap.Logger
}

// NewClient constructs a control plane client authenticating with a bearer token.
func NewClient(options ClientOptions) (*Client, error) {
	token := strings.TrimSpace(options.Token)
	if len(token) == 0 {
		return nil, InvalidInputError{FieldName: tokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseTransport := options.BaseTransport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	transport := &oauth2.Transport{
		Source: tokenSource,
		Base:   newLoggingRoundTripper(baseTransport, logger),
	}

	scheme := strings.TrimSpace(options.Scheme)
	if len(scheme) == 0 {
		scheme = defaultSchemeConstant
	}

	userAgent := strings.TrimSpace(options.UserAgent)
	if len(userAgent) == 0 {
		userAgent = defaultUserAgentConstant
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: options.RequestTimeout},
		scheme:     scheme,
		userAgent:  userAgent,
		logger:     logger,
	}, nil
}

// DeleteBranch issues one DELETE request for the branch and classifies the response.
// A non-nil error is returned only when no response could be obtained.
func (client *Client) DeleteBranch(executionContext context.Context, locator BranchLocator) (AttemptResult, error) {
	if client == nil || client.httpClient == nil {
		return AttemptResult{}, ErrHTTPClientNotConfigured
	}

	if validationError := validateLocator(locator); validationError != nil {
		return AttemptResult{}, validationError
	}

	requestPath := locator.Path()
	requestURL := fmt.Sprintf(requestURLTemplateConstant, client.scheme, strings.TrimSpace(locator.Host), requestPath)

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodDelete, requestURL, http.NoBody)
	if requestError != nil {
		return AttemptResult{}, OperationError{Operation: deleteBranchOperationNameConstant, Cause: requestError}
	}
	request.Header.Set(acceptHeaderNameConstant, jsonMediaTypeConstant)
	request.Header.Set(contentTypeHeaderNameConstant, jsonMediaTypeConstant)
	request.Header.Set(userAgentHeaderNameConstant, client.userAgent)

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return AttemptResult{}, TransportError{Method: http.MethodDelete, Path: requestPath, Cause: responseError}
	}
	defer response.Body.Close()

	rawBody, readError := io.ReadAll(io.LimitReader(response.Body, maximumResponseBodyBytesConstant))
	if readError != nil {
		return AttemptResult{StatusCode: response.StatusCode}, TransportError{Method: http.MethodDelete, Path: requestPath, Cause: readError}
	}

	branchID, outcome := ClassifyResponseBody(rawBody)
	result := AttemptResult{
		StatusCode: response.StatusCode,
		RawBody:    string(rawBody),
		BranchID:   branchID,
		Outcome:    outcome,
	}

	confirmedBranchID := confirmedBranchIDPlaceholderConstant
	if branchID != nil {
		confirmedBranchID = *branchID
	}

	client.logger.Debug(
		logMessageDeleteResponseConstant,
		zap.String(logFieldProjectIDConstant, locator.ProjectID),
		zap.String(logFieldBranchIDConstant, locator.BranchID),
		zap.Int(logFieldStatusCodeConstant, response.StatusCode),
		zap.String(logFieldOutcomeConstant, string(outcome)),
		zap.Int(logFieldResponseBytesConstant, len(rawBody)),
		zap.String(logFieldConfirmedBranchIDConstant, confirmedBranchID),
	)

	return result, nil
}

func validateLocator(locator BranchLocator) error {
	if len(strings.TrimSpace(locator.Host)) == 0 {
		return InvalidInputError{FieldName: hostFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(locator.ProjectID)) == 0 {
		return InvalidInputError{FieldName: projectIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(locator.BranchID)) == 0 {
		return InvalidInputError{FieldName: branchIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}
