// Package model defines the job record persisted for every asynchronous
// request, the request identifier format, and the rule that derives a
// record's status from its result text.
package model
