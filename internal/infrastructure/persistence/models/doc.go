// Package models maps domain aggregates onto gorm tables. Domain types carry
// no gorm tags; each model converts with ToDomain and FromDomain.
//
// A table is tenant-scoped exactly when it has a tenant_id column, either
// through TenantAggregateModel or declared directly.
package models
