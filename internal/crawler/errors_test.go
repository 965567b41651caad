package crawler_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webscoutlabs/webscout/internal/crawler"
	"github.com/webscoutlabs/webscout/internal/model"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		want   model.ErrorType
	}{
		{"Status404WinsOverMessage", errors.New("timeout waiting"), 404, model.ErrorNotFound},
		{"DeadlineExceeded", context.DeadlineExceeded, 0, model.ErrorTimeout},
		{"WrappedDeadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), 0, model.ErrorTimeout},
		{"TimeoutMessage", errors.New("net: connection timeout"), 0, model.ErrorTimeout},
		{"NotFoundMessage", errors.New("page not found"), 0, model.ErrorNotFound},
		{"JavaScriptMessage", errors.New("uncaught javascript exception"), 0, model.ErrorJavaScript},
		{"EvalMessage", errors.New("eval: ReferenceError"), 0, model.ErrorJavaScript},
		{"Other", errors.New("connection refused"), 0, model.ErrorOther},
		{"NilError", nil, 500, model.ErrorOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, crawler.ClassifyError(tc.err, tc.status))
		})
	}
}
