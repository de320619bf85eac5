// Package toolcall bridges untrusted, LLM-generated JSON argument blobs into
// statically-typed Go function calls.
//
// # Overview
//
// Language models request tool invocations as a function name plus a raw
// argument string that is frequently not valid JSON (unquoted keys, single
// quotes, bare word values). This package takes that string and turns it
// into a real call: repair the JSON best-effort, bind it into a positional,
// natively-typed argument vector, invoke the callable, and return a single
// textual result for the model loop.
//
// New inspects the function once at registration and produces a Tool with a
// JSON Schema signature; a Registry dispatches incoming Requests to tools and
// wraps each outcome in a Response.
//
// # Key concepts
//
//   - Best-effort repair: Repair never fails; on irrecoverable input it
//     returns the original text so the strict parse error surfaces instead.
//   - Fail-fast binding: a missing required parameter or an incompatible
//     value is an error back to the caller, never a silent zero value.
//   - Unified result: sync, async, and streaming tools all resolve to one
//     string; errors carry the tool name and the original cause.
//
// See Tool, Descriptor, Request and Response for the core types, and
// New / NewAgentTool / NewRegistry for setup.
//
// # Example
//
//	quote, err := toolcall.New("get_quote", "Fetch a stock quote",
//	    func(ticker, window string) (string, error) {
//	        return lookup(ticker, window)
//	    },
//	    toolcall.WithParam("ticker", "Stock ticker symbol"),
//	    toolcall.WithOptionalParam("window", "Time window", "1M"),
//	)
//	if err != nil { ... }
//	reg := toolcall.NewRegistry()
//	reg.Register(quote)
//	resp := reg.Handle(ctx, toolcall.Request{
//	    CallID:   "1",
//	    ToolName: "get_quote",
//	    RawArgs:  "{ticker: CMIG4, window: 1M}", // repaired automatically
//	})
package toolcall
