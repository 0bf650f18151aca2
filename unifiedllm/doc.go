// Package unifiedllm provides the model completion call used by the agent loop.
// It wraps the gollm library (github.com/teilomillet/gollm) behind a small
// provider-agnostic interface so the loop can be driven by any provider gollm
// supports, or by a test double.
//
// # Architecture
//
//   - ProviderAdapter: the interface every backend implements (one blocking
//     Complete call, no streaming).
//   - Client: routes requests to a registered adapter through a chain of
//     Middleware decorators (retry, rate limiting, logging).
//   - Error: one error type tagged with an ErrorKind; IsRetryable and KindOf
//     classify any error chain.
//   - GollmAdapter: the production adapter over gollm.LLM.
//   - Catalog: known models with their provider and context window.
//
// # Quick Start
//
//	adapter, err := unifiedllm.NewGollmAdapter(unifiedllm.GollmConfig{
//	    Provider: "groq",
//	    APIKey:   os.Getenv("GROQ_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("groq", adapter),
//	    unifiedllm.WithMiddleware(
//	        unifiedllm.RetryMiddleware(unifiedllm.DefaultRetryPolicy()),
//	        unifiedllm.RateLimitMiddleware(unifiedllm.NewRateLimiter(30, 1)),
//	    ),
//	)
//
//	resp, _ := client.Complete(ctx, unifiedllm.Request{
//	    Model:    "llama-3.3-70b-versatile",
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
package unifiedllm
