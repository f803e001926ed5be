package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_checkout/domain"
)

// HTTPPort posts the submission request as JSON to an order-service
// endpoint and classifies the response by status code.
type HTTPPort struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

func NewHTTPPort(baseURL string, timeout time.Duration) *HTTPPort {
	return &HTTPPort{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		timeout: timeout,
	}
}

type orderResponse struct {
	OrderNumber string               `json:"order_number"`
	ErrorCode   string               `json:"error_code"`
	Message     string               `json:"message"`
	FieldErrors []domain.FieldError  `json:"field_errors"`
	Retryable   bool                 `json:"retryable"`
}

func (p *HTTPPort) Submit(ctx context.Context, req *domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// transport failure: the order may or may not exist downstream,
		// the idempotency key makes the retry safe
		return domain.SubmissionTransientFailure("transport_error", err.Error()), nil
	}
	defer resp.Body.Close()

	var decoded orderResponse
	if errDecode := json.NewDecoder(resp.Body).Decode(&decoded); errDecode != nil && resp.StatusCode < 500 {
		return nil, fmt.Errorf("failed to decode submission response: %w", errDecode)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return domain.SubmissionSuccess(decoded.OrderNumber), nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return domain.SubmissionValidationFailure(decoded.FieldErrors), nil
	case resp.StatusCode >= 500:
		return domain.SubmissionTransientFailure(errorCode(decoded.ErrorCode, "service_unavailable"), decoded.Message), nil
	default:
		return domain.SubmissionFatalFailure(errorCode(decoded.ErrorCode, "order_rejected"), decoded.Message), nil
	}
}

func errorCode(code, fallback string) string {
	if code != "" {
		return code
	}
	return fallback
}
