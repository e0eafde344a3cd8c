// Package http exposes the booking services over JSON.
//
// The router serves the following endpoints:
//   - POST /bookings submits a pending booking. GET /bookings lists visible bookings for
//     ?month=YYYY-MM or ?from=YYYY-MM-DD&to=YYYY-MM-DD, optionally narrowed by room_id
//     and mine=true.
//   - GET /bookings/days and GET /bookings/summary accept the same query and return the
//     per-day grouping and the per-status counts.
//   - GET /bookings/{id}, PUT /bookings/{id}, POST /bookings/{id}/approve and
//     POST /bookings/{id}/cancel read, edit and transition one booking.
//   - GET /availability?room_id&date&start&end[&exclude_id] checks a window and
//     GET /rooms/{id}/free-slots?date= lists the free windows of a day.
//   - GET and POST /rooms, GET and POST /equipment manage the catalog.
//   - GET and POST /profiles/me read and register the caller's profile.
//
// Callers authenticate with "Authorization: Bearer <jwt>". Requests without a token run
// as the anonymous actor.
package http
