package crawler

import (
	"context"
	"errors"
	"strings"

	"github.com/webscoutlabs/webscout/internal/model"
)

// ClassifyError maps a navigation/extraction failure to the error taxonomy:
// timeout, 404, javascript_error or other. Classification is by status code
// first, then message inspection.
func ClassifyError(err error, statusCode int) model.ErrorType {
	if statusCode == 404 {
		return model.ErrorNotFound
	}
	if err == nil {
		return model.ErrorOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrorTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return model.ErrorTimeout
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return model.ErrorNotFound
	case strings.Contains(msg, "javascript") || strings.Contains(msg, "script error") ||
		strings.Contains(msg, "eval"):
		return model.ErrorJavaScript
	default:
		return model.ErrorOther
	}
}

// retryable reports whether a failure class gets a second attempt. Only
// timeouts are retried; everything else is terminal on the first failure.
func retryable(t model.ErrorType) bool {
	return t == model.ErrorTimeout
}
