// Package audit records migration activity in the audit_logs table.
//
// The audit module is a configuration unit that ships its own schema. Its
// scripts are embedded under db/audit/<vendor>/ and it declares
// "classpath:db/audit/{vendor}" as an additional migration location, so
// registering the unit is all it takes for the audit table to be created on
// the next migration run.
package audit
