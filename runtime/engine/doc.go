// Package engine drives workflow instances through a transition graph.
//
// Every Fire call is serialized per instance: the edge is resolved, guards are
// evaluated, edge actions run and the new state is committed together with
// its audit record, or nothing is changed at all.
package engine
