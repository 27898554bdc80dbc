// Package http implements the HTTP request handlers for the volatility
// service. It is a thin layer between transport and the calculation services:
// handlers parse and validate wire types, convert them to internal types,
// call the service layer, and format responses.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - solving, pivoting and fitting live in the services
//	5. Wire types only - bodies use pkg/contracts, never internal types
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → volatility/market
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Validation
//
// Request bodies are checked twice before any numerical work:
//
//	- render.Bind runs the cross-field rules a tag cannot express
//	  (solved rows XOR quotes, calendar-valid dates, grid shape)
//	- ValidationMiddleware.ValidateStruct enforces the per-field
//	  validate tags, including the iso8601 and optiontype validators
//
// Conversion to internal types happens only after both pass; the solve,
// grid and mesh responses reuse the same wire types the requests accept,
// so a response body can be posted back to the next endpoint unchanged.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/grid/no-observations",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "no solved observations to build a grid from",
//	    "instance": "/api/volatility/grid"
//	}
//
// Malformed requests map to 400, data conditions (empty pivot, pruned
// grid, unfittable surface) to 422, everything unexpected to 500. Per-quote
// solve failures are not errors: they ride on the response rows with a
// failure kind.
//
// # Testing
//
// Handlers are tested using httptest:
//
//	- Mock service dependencies
//	- Test various HTTP scenarios
//	- Verify error responses
package http
