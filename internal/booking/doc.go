// Package booking is the appointment availability and booking engine.
//
// An Engine resolves a business's calendar credential and weekly hours,
// computes open hourly slots for a day (and a coarse per-day map for a
// date range), books appointments across the external calendar and the
// local store under the business's overlap policy, and cancels them again
// without ever recording a cancellation the calendar did not accept.
//
// All date and time arithmetic happens in one operating zone,
// OperatingTimezone. Failures are returned as *Error values whose Kind
// callers can switch on; nothing in the engine panics on bad input.
package booking
