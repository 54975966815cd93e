// Package tenantconfig resolves tenant-specific configuration, chiefly the
// connection string each tenant's data lives behind.
//
// Settings come from a YAML file and the environment:
//
//	mode: multi-tenant
//	connection_strings:
//	  main: postgres://app@db:5432/main
//	  audit: postgres://app@db:5432/audit
//	shared_databases: [audit]
//	defaults:
//	  connection_strings:
//	    main: postgres://app@db:5432/tenant_{tenant}
//	tenants: # keyed by tenant id
//	  0b9c2c0e-4c1f-4a55-9b7c-2f0a2f3c6a11:
//	    connection_strings:
//	      main: postgres://app@dedicated:5432/acme
//
// Environment variables (TENANCY_MODE, TENANCY_CONFIG_FILE,
// CONNECTION_STRINGS, TENANCY_DEFAULT_CONNECTION_STRINGS,
// TENANCY_SHARED_DATABASES) override the file.
//
// # Resolution
//
// Configuration.ConnectionString(name) applies, in order:
//
//  1. Single-tenant mode or a shared database: the static connection string.
//  2. No tenant token: the static connection string.
//  3. The tenant's override, else the defaults template, with "{tenant}"
//     replaced by the token.
//  4. Otherwise ErrConfiguration.
//
// A Resolver is read-only after construction and may be shared by every
// request in the process.
package tenantconfig
