// Package observability holds the prometheus collectors of the sync service.
//
// All collectors live on a dedicated registry so that tests and multiple
// service instances in one process never collide on registration.
package observability
