// Package cli implements the permgate command-line interface.
//
// Every command loads the permission matrix and user registry from the
// configured backend, does its work, and exits. Configuration comes from
// PERMGATE_* variables (see package config); the persistent flags override
// them when given.
//
// Checking access:
//
//	permgate check alice admin.manage_users
//	permgate whoami alice -v
//
// Changing the documents. Each change is appended to the audit log:
//
//	permgate grant trader trader.place_order true --operator alice
//	permgate adduser erin trader desk-4 true --operator alice
//	permgate toggle bob false --operator alice
//
// Admin commands run with a resolved user as operator and require that user
// to hold admin.manage_users:
//
//	permgate admin alice grant auditor audit.read true
//	permgate admin alice viewlog 10
//
// Listing and bulk transfer:
//
//	permgate listusers
//	permgate listperms trader
//	permgate keys
//	permgate matrix
//	permgate export perms.yaml
//	permgate import --registry users.yaml
//
// Long-running mode with hot reload, Prometheus metrics and health probes:
//
//	permgate serve --ops-addr :9090 --reload-schedule "@every 5m"
package cli
