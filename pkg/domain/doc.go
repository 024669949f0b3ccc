// Package domain contains the core domain entities and types used by the
// application. These types describe a reconnaissance request, the result of a
// pipeline run and its persisted record, and are free of infrastructure
// concerns so they can be shared across packages.
package domain
