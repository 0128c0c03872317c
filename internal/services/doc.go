// Package services holds the feeddiff business logic between the HTTP
// handlers and the feed, compare and report packages.
//
// DiffService runs comparisons: both feeds are loaded concurrently, compared,
// and the finished Run is kept in a RunStore so its report can be rendered
// later in any format. HealthService backs the health and version endpoints.
package services
