package restapi

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// LoggingMiddleware logs every call at debug level, including API errors
// carried in the response.
func LoggingMiddleware(logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				failed := err
				if f, ok := response.(endpoint.Failer); ok && failed == nil {
					failed = f.Failed()
				}
				level.Debug(logger).Log("took", time.Since(begin), "err", failed)
			}(time.Now())
			return next(ctx, request)
		}
	}
}
