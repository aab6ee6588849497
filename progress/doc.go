// Package progress renders the canonical step sequence of a workflow
// instance as a progress view for user interfaces.
package progress
