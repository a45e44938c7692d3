// Package client sends HTTP requests described declaratively by
// [request.Descriptor] values.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithBaseURL("https://api.example.com/v1"),
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// Describe the request with a parameter struct whose tags bind fields to
// the query string, headers, a form body or a serialized body, then send it:
//
//	type getUser struct {
//		Expand []string `query:"expand,collection=recursive"`
//	}
//
//	user, err := client.Perform[User](ctx, c, &request.Descriptor{
//		Path:   "/users/42",
//		Params: getUser{Expand: []string{"groups"}},
//	})
//
// Responses are decoded by the serializer registered for the destination
// type in the client's [serializer.Registry]; JSON is the fallback.
//
// # Reconfiguring
//
// Default headers live in [Client.Headers]. Changing them, or calling
// [Client.SetHandlerFactory], [Client.Reset] or [Client.ResetTransport],
// takes effect on the next request. In-flight requests keep the transport
// they acquired.
//
// # Downloading Files
//
// Stream a response body directly to disk with optional checksum
// verification and progress reporting:
//
//	err = c.Download(ctx, d, "/tmp/file.bin",
//		client.WithChecksum(sha256.New(), expectedHex),
//		client.WithProgressFunc(func(written, total int64) { ... }),
//	)
//
// # Async Downloads
//
// A single file can be downloaded asynchronously with [Client.DownloadAsync]:
//
//	r, err := c.DownloadAsync(ctx, d, "/tmp/file.bin")
//	// ... do other work ...
//	if err := r.Err(); err != nil { ... }
//
// For multiple concurrent downloads, use [WithBatch] to set a concurrency
// limit and [download.Result.Add] to enqueue additional files:
//
//	r, err := c.DownloadAsync(ctx, d1, "/tmp/a.bin", client.WithBatch(4))
//	r.Add(ctx, d2, "/tmp/b.bin")
//	r.Add(ctx, d3, "/tmp/c.bin")
//	err = r.Wait() // blocks until all downloads finish
package client
