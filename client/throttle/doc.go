// Package throttle rate-limits outbound HTTP requests using a token-bucket
// algorithm from [golang.org/x/time/rate].
//
// # Usage
//
// Create a [Limiter] and wrap transports with it:
//
//	l, err := throttle.New(
//		throttle.Config{RPS: 10, Burst: 5},
//		func() *slog.Logger { return slog.Default() },
//	)
//	httpClient := &http.Client{Transport: l.Wrap(http.DefaultTransport)}
//
// Every transport wrapped by the same Limiter draws from one bucket, and
// [Limiter.SetLimit] adjusts the rate while requests are in flight.
//
// When the rate limit is exceeded, outbound requests block until a
// token becomes available or the request context is cancelled.
package throttle
