// Package http provides HTTP handlers and middleware for the shift ledger API.
//
// The router exposes the following endpoints:
//   - POST /sync: runs one calendar sync and attendance auto-fill. Response:
//     {"success","created","updated","deleted","autoFilled","error"}. Answers 409
//     while another run is in flight and 502 when the run failed.
//   - GET /sync: reports whether a run is active plus the last and next run.
//   - GET /shifts?status=&year=&employer_id=: shifts ordered by start, exchanging the
//     `shiftDTO` payload defined in shift_handler.go. year selects a fiscal year
//     (December of the prior year through November).
//   - GET /report?year=: fiscal year income per month and per employer.
//   - GET /employers, POST /employers, PUT /employers/{id}, DELETE /employers/{id}:
//     workplace management exchanging the `employerDTO` payload defined in
//     employer_handler.go. Deleting an employer that still has shifts answers 409.
//   - POST /entries, GET /entries/{id}, PUT /entries/{id}, DELETE /entries/{id}:
//     payroll entries completing a shift, exchanging the `entryDTO` payload defined in
//     entry_handler.go. Deleting an entry returns its shift to PENDING.
//   - GET /healthz: liveness probe.
//
// When an API token hash is configured every endpoint requires
// `Authorization: Bearer <token>` (or `X-API-Token`).
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
