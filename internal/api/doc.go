// Package api implements the HTTP client for the content-repurposing service.
//
// # Overview
//
// The Client wraps net/http with the conventions the backend expects: JSON
// bodies, bearer authentication, and FastAPI-style error payloads of the form
// {"detail": "..."}. Every method takes a context so callers can abandon a
// request when the view that issued it goes away.
//
// # Endpoints
//
//	POST   /auth/login              Login
//	POST   /auth/register           Register
//	POST   /auth/logout             Logout
//	GET    /auth/me                 Me
//	GET    /jobs?page&limit&status  ListJobs
//	GET    /jobs/{id}               GetJob
//	POST   /jobs/{id}/cancel        CancelJob
//	DELETE /jobs/{id}               DeleteJob
//	GET    /outputs/{jobId}/all     JobOutputs
//	POST   /outputs/{id}/regenerate RegenerateOutput
//	GET    /analytics/              Analytics
//	POST   /content/upload          UploadContent (multipart)
//
// Paths are resolved relative to the configured base URL, so a base of
// http://host/api/v1 yields http://host/api/v1/jobs. Identifiers are parsed as
// UUIDs before they are placed into a path.
//
// # Errors
//
// Responses with status >= 400 become *Error values carrying the method, path,
// status code and the server's detail message. errors.Is(err, ErrUnauthorized)
// and errors.Is(err, ErrNotFound) match the corresponding status codes.
//
// UserMessage collapses any error into the short text shown in a notification:
// the server detail when there is one, otherwise the caller's fallback. Classify
// produces the compact connection label rendered in the TUI header.
//
// A 401 also fires the OnUnauthorized hook, which the application uses to drop
// the local session when the server no longer accepts the token.
//
// # Interfaces
//
// Consumers depend on the narrow interfaces (Authenticator, JobLister,
// JobMutator, OutputFetcher) rather than *Client so they can be tested with
// small fakes.
package api
