// Package mockapi serves an in-memory stand-in for the repurposing backend.
//
// It implements the endpoints the client consumes under /api/v1: bearer
// token auth, paginated and filtered job lists, cancel and delete, per
// platform outputs, regeneration, analytics and multipart upload. Jobs move
// from pending to processing to completed as the injected clock advances,
// one Step per transition, and completed jobs receive generated outputs for
// every requested platform.
package mockapi
