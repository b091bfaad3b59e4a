// Package datadomain is a client for the management interface of DataDomain
// deduplication appliances.
//
// Storage trees (mtrees), NFS exports and interface lookups go through the
// REST API v1.0 on port 3009. VLAN interface creation and deletion and mtree
// replication are not exposed by that API and run as shell commands over SSH
// with the same account.
//
// Every operation returns an error value instead of a boolean: match it with
// errors.Is against ErrTransport, ErrAuthentication, ErrUnexpectedStatus or
// ErrCommandFailed, or use errors.As for *StatusError, *CommandError and
// *StepError. Succeeded gives the plain boolean when that is all a caller
// needs.
//
// TLS verification is off unless WithVerifyTLS or WithRootCAs is given, and
// the default SSH dialer accepts any host key; both match how appliances are
// usually deployed with self-signed certificates and regenerated keys.
package datadomain
