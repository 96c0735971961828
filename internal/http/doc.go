// Package http exposes the engine commands and queries over a JSON API.
//
// The router serves:
//   - GET /healthz: engine liveness, 503 once the engine is stopped.
//   - GET /equipment, POST /equipment, GET|PATCH|DELETE /equipment/{id}:
//     detector registry. PATCH accepts {"site","status"}; DELETE retires the
//     detector and its maintenance history.
//   - GET|POST /equipment/{id}/readings: reading log and manual ingestion.
//   - GET /maintenance, POST /maintenance, GET /maintenance/{id},
//     POST /maintenance/{id}/complete: planned maintenance. Dates are YYYY-MM-DD
//     in the engine time zone.
//   - GET /stock, POST /stock, GET|DELETE /stock/{id}, PUT /stock/{id}/quantity,
//     POST /stock/{id}/consume: consumables.
//   - GET|POST /technicians, GET|POST /interventions,
//     PUT|DELETE /interventions/{id}/assignee: field assignments.
//   - GET /notifications, DELETE /notifications/{id}: live notification set.
//   - POST /sweeps/{name}: runs the maintenance, reminders, stock or
//     notifications sweep immediately.
//
// Errors are rendered as {"error_code","message","errors"}. Request and
// response DTOs live alongside their handlers.
package http
