// Package model contains the declarative representation of repair workflow
// definitions used by the fixflow engine.
//
// A workflow is typically loaded from a YAML or JSON document into the
// Workflow structure and then compiled into an immutable transition graph
// (see the `graph` sub-package) once at startup.
package model
